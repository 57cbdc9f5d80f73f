package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/interface/rest/presenter"
	"github.com/totegamma/where/internal/service"
	"github.com/totegamma/where/internal/usecase"
)

const apiVersion = "1.0"

type Handler struct {
	locations *usecase.LocationStore
	ledger    *usecase.Ledger
	accounts  *usecase.AccountUsecase
	signal    *service.SignalService
	log       *zap.Logger
}

func NewHandler(
	locations *usecase.LocationStore,
	ledger *usecase.Ledger,
	accounts *usecase.AccountUsecase,
	signal *service.SignalService,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		locations: locations,
		ledger:    ledger,
		accounts:  accounts,
		signal:    signal,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/where", h.handleWellKnown)

	api := e.Group("/api/v1")
	api.GET("/locations", h.handleListLocations)
	api.POST("/locations", h.handleCreateLocation)
	api.GET("/locations/:id", h.handleGetLocation)
	api.POST("/locations/:id/comments", h.handleAddComment)
	api.POST("/locations/:id/ratings", h.handleSubmitRating)
	api.POST("/locations/:id/images", h.handleAddImages)

	api.GET("/likes", h.handleGetLikes)
	api.POST("/likes", h.handleLike)
	api.DELETE("/likes", h.handleUnlike)

	api.GET("/users/:id/points", h.handlePoints)
	api.GET("/users/:id/referrals", h.handleReferrals)

	api.POST("/auth/signup", h.handleSignup)
	api.POST("/auth/login", h.handleLogin)
	api.POST("/auth/guest", h.handleGuest)
	api.GET("/auth/me", h.handleMe)

	e.GET("/realtime", h.handleRealtime)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

type endpoint struct {
	Template string    `json:"template"`
	Method   string    `json:"method"`
	Query    *[]string `json:"query,omitempty"`
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	return presenter.OK(c, echo.Map{
		"version": apiVersion,
		"endpoints": map[string]endpoint{
			"where.locations":        {Template: "/api/v1/locations", Method: "GET", Query: &[]string{"createdBy"}},
			"where.location":         {Template: "/api/v1/locations/{id}", Method: "GET"},
			"where.location.create":  {Template: "/api/v1/locations", Method: "POST"},
			"where.location.comment": {Template: "/api/v1/locations/{id}/comments", Method: "POST"},
			"where.location.rate":    {Template: "/api/v1/locations/{id}/ratings", Method: "POST"},
			"where.location.images":  {Template: "/api/v1/locations/{id}/images", Method: "POST"},
			"where.likes":            {Template: "/api/v1/likes", Method: "GET", Query: &[]string{"imageUrl", "userId"}},
			"where.points":           {Template: "/api/v1/users/{id}/points", Method: "GET"},
			"where.referrals":        {Template: "/api/v1/users/{id}/referrals", Method: "GET"},
			"where.realtime":         {Template: "/realtime", Method: "GET"},
		},
	})
}

// locationView is a location as served to clients, with its display score.
type locationView struct {
	domain.Location
	Score      float64 `json:"score"`
	CID        string  `json:"cid,omitempty"`
	GatewayURL string  `json:"gatewayUrl,omitempty"`
}

func (h *Handler) view(l domain.Location) locationView {
	return locationView{
		Location:   l,
		Score:      l.Ratings.Score(),
		CID:        l.CID,
		GatewayURL: h.locations.GatewayURL(l.CID),
	}
}

func (h *Handler) handleListLocations(c echo.Context) error {
	var locations []domain.Location
	if createdBy := c.QueryParam("createdBy"); createdBy != "" {
		locations = h.locations.ByCreator(createdBy)
	} else {
		locations = h.locations.List()
	}

	views := make([]locationView, 0, len(locations))
	for _, l := range locations {
		views = append(views, h.view(l))
	}
	return presenter.OK(c, views)
}

func (h *Handler) handleGetLocation(c echo.Context) error {
	location, err := h.locations.Get(c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, h.view(location))
}

func (h *Handler) handleCreateLocation(c echo.Context) error {
	ctx := c.Request().Context()

	var draft domain.LocationDraft
	if err := c.Bind(&draft); err != nil {
		return presenter.BadRequest(c, err)
	}
	if id, username, ok := requester(ctx); ok {
		draft.CreatedBy = id
		if draft.Username == nil && !draft.IsAnonymous {
			draft.Username = &username
		}
	}

	result, err := h.locations.Create(ctx, draft)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, result)
}

func (h *Handler) handleAddComment(c echo.Context) error {
	ctx := c.Request().Context()

	var comment domain.Comment
	if err := c.Bind(&comment); err != nil {
		return presenter.BadRequest(c, err)
	}
	if id, username, ok := requester(ctx); ok {
		comment.UserID = id
		if comment.Username == nil {
			comment.Username = &username
		}
	}

	result, err := h.locations.AddComment(ctx, c.Param("id"), comment)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, result)
}

func (h *Handler) handleSubmitRating(c echo.Context) error {
	ctx := c.Request().Context()

	var input domain.RatingInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	if id, username, ok := requester(ctx); ok {
		input.UserID = id
		if input.Username == nil {
			input.Username = &username
		}
	}

	result, err := h.locations.SubmitRating(ctx, c.Param("id"), input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

type addImagesRequest struct {
	Images      []string `json:"images"`
	UserID      string   `json:"userId"`
	Username    *string  `json:"username"`
	IsAnonymous bool     `json:"isAnonymous"`
}

func (h *Handler) handleAddImages(c echo.Context) error {
	ctx := c.Request().Context()

	var req addImagesRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	contributor := domain.Contributor{
		UserID:      req.UserID,
		Username:    req.Username,
		IsAnonymous: req.IsAnonymous,
	}
	if id, username, ok := requester(ctx); ok {
		contributor.UserID = id
		if contributor.Username == nil {
			contributor.Username = &username
		}
	}

	result, err := h.locations.AddImages(ctx, c.Param("id"), contributor, req.Images)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

type likeRequest struct {
	UserID     string `json:"userId"`
	LocationID string `json:"locationId"`
	ImageURL   string `json:"imageUrl"`
}

type likeResponse struct {
	ImageURL string `json:"imageUrl"`
	Count    int64  `json:"count"`
	Liked    bool   `json:"liked"`
}

func (h *Handler) bindLike(c echo.Context) (likeRequest, error) {
	var req likeRequest
	if err := c.Bind(&req); err != nil {
		return req, err
	}
	if id, _, ok := requester(c.Request().Context()); ok {
		req.UserID = id
	}
	return req, nil
}

func (h *Handler) handleLike(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := h.bindLike(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := h.ledger.LikeImage(ctx, req.UserID, req.LocationID, req.ImageURL); err != nil {
		return presenter.Error(c, err)
	}
	return h.likeState(c, req.UserID, req.ImageURL)
}

func (h *Handler) handleUnlike(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := h.bindLike(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := h.ledger.UnlikeImage(ctx, req.UserID, req.LocationID, req.ImageURL); err != nil {
		return presenter.Error(c, err)
	}
	return h.likeState(c, req.UserID, req.ImageURL)
}

func (h *Handler) handleGetLikes(c echo.Context) error {
	imageURL := c.QueryParam("imageUrl")
	if imageURL == "" {
		return presenter.BadRequestMessage(c, "imageUrl parameter is required")
	}
	userID := c.QueryParam("userId")
	if id, _, ok := requester(c.Request().Context()); ok && userID == "" {
		userID = id
	}
	return h.likeState(c, userID, imageURL)
}

func (h *Handler) likeState(c echo.Context, userID, imageURL string) error {
	ctx := c.Request().Context()

	count, err := h.ledger.ImageLikes(ctx, imageURL)
	if err != nil {
		return presenter.Error(c, err)
	}
	liked := false
	if userID != "" {
		liked, err = h.ledger.IsImageLikedByUser(ctx, userID, imageURL)
		if err != nil {
			return presenter.Error(c, err)
		}
	}
	return presenter.OK(c, likeResponse{ImageURL: imageURL, Count: count, Liked: liked})
}

func (h *Handler) handlePoints(c echo.Context) error {
	points, err := h.ledger.Points(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"userId": c.Param("id"), "points": points})
}

func (h *Handler) handleReferrals(c echo.Context) error {
	count, err := h.ledger.ReferralCount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"userId": c.Param("id"), "count": count})
}

func (h *Handler) handleSignup(c echo.Context) error {
	var input usecase.SignupInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	session, err := h.accounts.Signup(c.Request().Context(), input)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, session)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	session, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleGuest(c echo.Context) error {
	session, err := h.accounts.Guest(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, session)
}

func (h *Handler) handleMe(c echo.Context) error {
	ctx := c.Request().Context()

	id, _, ok := requester(ctx)
	if !ok {
		return presenter.Unauthorized(c)
	}
	user, err := h.accounts.Get(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, user)
}

func requester(ctx context.Context) (id, username string, ok bool) {
	id, _ = ctx.Value(domain.RequesterIdCtxKey).(string)
	username, _ = ctx.Value(domain.RequesterUsernameCtxKey).(string)
	return id, username, id != ""
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Request is a message sent by realtime clients.
type Request struct {
	Type      string   `json:"type"`
	Locations []string `json:"locations"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("failed to upgrade websocket", zap.Error(err))
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.log.Debug("websocket closed", zap.Error(err))
				}
				return
			}

			switch strings.ToLower(req.Type) {
			case "listen":
				select {
				case input <- req.Locations:
				case <-ctx.Done():
					return
				}
				h.log.Debug("socket subscribe", zap.Strings("locations", req.Locations))
			case "h": // heartbeat
			default:
				h.log.Info("unknown request type", zap.String("type", req.Type))
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			if err := ws.WriteJSON(event); err != nil {
				h.log.Error("error writing message", zap.Error(err))
				return nil
			}
		}
	}
}
