package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

// HomeRoute names the post list route that delete responses point back to.
const HomeRoute = "blog-home"

// PostController serves the post list, detail, create, update and delete routes.
type PostController struct {
	posts   *repository.PostRepository
	users   *repository.UserRepository
	urls    models.URLReverser
	perPage int
	admins  Admins
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *repository.PostRepository, users *repository.UserRepository, urls models.URLReverser, perPage int, admins Admins) *PostController {
	if perPage <= 0 {
		perPage = 5
	}
	return &PostController{posts: posts, users: users, urls: urls, perPage: perPage, admins: admins}
}

type authorResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type postResponse struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	DatePosted time.Time      `json:"date_posted"`
	Author     authorResponse `json:"author"`
	URL        string         `json:"url"`
}

type postRequest struct {
	Title   string `json:"title" binding:"required,max=100"`
	Content string `json:"content" binding:"required"`
}

func (p *PostController) present(post models.Post) (postResponse, error) {
	url, err := post.AbsoluteURL(p.urls)
	if err != nil {
		return postResponse{}, err
	}
	return postResponse{
		ID:         post.ID,
		Title:      post.String(),
		Content:    post.Content,
		DatePosted: post.DatePosted,
		Author:     authorResponse{ID: post.Author.ID, Username: post.Author.Username},
		URL:        url,
	}, nil
}

func (p *PostController) presentAll(posts []models.Post) ([]postResponse, error) {
	items := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		item, err := p.present(post)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListPosts returns paginated posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), p.perPage)

	cacheKey := fmt.Sprintf("cache:posts:list:page=%d:size=%d", page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	posts, total, err := p.posts.List(ctx.Request.Context(), page, pageSize)
	if err != nil {
		utils.Sugar.Errorw("list posts failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list posts")
		return
	}
	items, err := p.presentAll(posts)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}

	payload := paginated(items, page, pageSize, total)
	utils.CacheSetResponse(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// ListUserPosts returns the posts of one author, newest first.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	if username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40060, "missing username")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), p.perPage)

	// resolve first so the cache is keyed on the stored username
	user, err := p.users.GetByUsername(ctx.Request.Context(), username)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("load user failed", "username", username, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load user")
		return
	}

	cacheKey := fmt.Sprintf("%spage=%d:size=%d", userPostsCachePrefix(user.Username), page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	posts, total, err := p.posts.ListByAuthor(ctx.Request.Context(), user.ID, page, pageSize)
	if err != nil {
		utils.Sugar.Errorw("list user posts failed", "user_id", user.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list user posts")
		return
	}
	items, err := p.presentAll(posts)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}

	payload := paginated(items, page, pageSize, total)
	payload["author"] = authorResponse{ID: user.ID, Username: user.Username}
	utils.CacheSetResponse(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("pk"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	cacheKey := detailCacheKey(id)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	post, ok := p.load(ctx, id, 40401, 50023)
	if !ok {
		return
	}
	item, err := p.present(*post)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}

	payload := gin.H{"post": item}
	utils.CacheSetResponse(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// CreatePost stores a new post authored by the authenticated user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, bindMessage(err))
		return
	}

	title := utils.StripTags(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "content cannot be empty")
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	author, err := p.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		// token outlived its account
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{Title: title, Content: content, AuthorID: author.ID}
	if err := p.posts.Create(ctx.Request.Context(), &post); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			utils.Error(ctx, http.StatusBadRequest, 40023, bindMessage(err))
			return
		}
		utils.Sugar.Errorw("create post failed", "author_id", author.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}
	post.Author = *author

	invalidatePostCaches(post.ID, author.Username)

	item, err := p.present(post)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}
	utils.Created(ctx, item.URL, gin.H{"post": item})
}

// UpdatePost lets the author replace title and content.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("pk"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		return
	}

	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, bindMessage(err))
		return
	}
	title := utils.StripTags(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40026, "content cannot be empty")
		return
	}

	post, ok := p.load(ctx, id, 40403, 50025)
	if !ok {
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}
	if post.AuthorID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only update your own posts")
		return
	}

	if err := p.posts.Update(ctx.Request.Context(), post, title, content); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			utils.Error(ctx, http.StatusBadRequest, 40027, bindMessage(err))
			return
		}
		utils.Sugar.Errorw("update post failed", "post_id", id, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}

	invalidatePostCaches(post.ID, post.Author.Username)

	item, err := p.present(*post)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": item})
}

// DeletePost lets the author, or an admin, delete a post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("pk"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
		return
	}

	post, ok := p.load(ctx, id, 40404, 50027)
	if !ok {
		return
	}

	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	if post.AuthorID != userID && !p.admins.Has(ctx.GetString(middleware.ContextUsernameKey)) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if err := p.posts.Delete(ctx.Request.Context(), post.ID); err != nil && !errors.Is(err, repository.ErrPostNotFound) {
		utils.Sugar.Errorw("delete post failed", "post_id", id, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	invalidatePostCaches(post.ID, post.Author.Username)

	home, err := p.urls.Reverse(HomeRoute, nil)
	if err != nil {
		p.urlFailure(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted", "redirect": home})
}

// About returns the static about payload.
func (p *PostController) About(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"title": "About"})
}

// load fetches the post and writes a 404 or 500 when it cannot.
func (p *PostController) load(ctx *gin.Context, id int64, notFoundCode, failCode int) (*models.Post, bool) {
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if errors.Is(err, repository.ErrPostNotFound) {
		utils.Error(ctx, http.StatusNotFound, notFoundCode, "post not found")
		return nil, false
	}
	if err != nil {
		utils.Sugar.Errorw("load post failed", "post_id", id, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, failCode, "failed to load post")
		return nil, false
	}
	return post, true
}

func (p *PostController) urlFailure(ctx *gin.Context, err error) {
	utils.Sugar.Errorw("reverse url failed", "path", ctx.Request.URL.Path, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to build post url")
}

func detailCacheKey(id int64) string {
	return "cache:post:detail:" + strconv.FormatInt(id, 10)
}

// invalidatePostCaches drops every cached page a post change can appear on.
func invalidatePostCaches(id int64, username string) {
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix(detailCacheKey(id))
	if username != "" {
		utils.InvalidateByPrefix(userPostsCachePrefix(username))
	}
}

func userPostsCachePrefix(username string) string {
	return "cache:user:" + username + ":posts:"
}

func paginated(items interface{}, page, pageSize int, total int64) gin.H {
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page := 1
	pageSize := defaultSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// bindMessage turns validator errors into a short client-facing message.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request payload"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "email":
		return field + " must be a valid email address"
	}
	return "invalid " + field
}
