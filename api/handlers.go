package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"shareboard/core"
	"shareboard/domain"
)

// requestBodyMaxSize bounds decoded request bodies. Generous because task
// images travel base64-encoded inside the JSON payload.
const requestBodyMaxSize = 8 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Service, auth Sessions, logger *log.Logger) {
	e.POST("/api/register", register(svc, auth))
	e.POST("/api/login", login(svc, auth))
	e.GET("/api/me", getMe(svc, auth))
	e.DELETE("/api/me", deleteMe(svc, auth))

	e.GET("/api/boards", getBoards(svc, auth, logger))
	e.POST("/api/boards", postBoard(svc, auth))
	e.GET("/api/boards/available", getAvailableTitles(svc, auth))
	e.PUT("/api/boards/:title", putBoard(svc, auth))
	e.DELETE("/api/boards/:title", deleteBoard(svc, auth))
	e.GET("/api/boards/:title/tasks", getBoardTasks(svc, auth))
	e.POST("/api/boards/:title/tasks", postTask(svc, auth))
	e.GET("/api/users/:username/boards", getUserBoardTitles(svc, auth))

	e.PATCH("/api/tasks/:id", patchTask(svc, auth))
	e.DELETE("/api/tasks/:id", deleteTask(svc, auth))
	e.POST("/api/tasks/:id/move", moveTask(svc, auth))
	e.POST("/api/tasks/:id/position", reorderTask(svc, auth))
	e.POST("/api/tasks/:id/share", shareTask(svc, auth))
	e.DELETE("/api/tasks/:id/share", removeMyShare(svc, auth))
	e.DELETE("/api/tasks/:id/share/:username", revokeShare(svc, auth))
	e.GET("/api/tasks/:id/recipients", getRecipients(svc, auth))
	e.GET("/api/tasks/search", searchTasks(svc, auth))
	e.GET("/api/tasks/due", dueTasks(svc, auth))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// errorStatus maps engine errors onto HTTP statuses. Partial multi-row
// failures surface as a conflict so clients know to reload.
func errorStatus(err error) int {
	var inc *domain.InconsistencyError
	switch {
	case errors.As(err, &inc):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistenceFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.String(status, err.Error())
}

func userFromHeader(c echo.Context, auth Sessions) (int64, error) {
	return auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func register(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		user, err := svc.Register(c.Request().Context(), req.Username, req.Password)
		if err != nil {
			return fail(c, err)
		}
		token, err := auth.IssueToken(user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user})
	}
}

func login(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		user, err := svc.Authenticate(c.Request().Context(), req.Username, req.Password)
		if err != nil {
			// Authentication failures map to 401, not the usual 403.
			if errors.Is(err, domain.ErrPermissionDenied) {
				return c.String(http.StatusUnauthorized, "invalid credentials")
			}
			return fail(c, err)
		}
		token, err := auth.IssueToken(user.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, sessionResponse{Token: token, User: user})
	}
}

func getMe(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		user, err := svc.User(c.Request().Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

func deleteMe(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := svc.DeleteAccount(c.Request().Context(), userID); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getBoards(svc Service, auth Sessions, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newViewRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := userFromHeader(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		loadStart := time.Now()
		views, loadErr := svc.Views(c.Request().Context(), userID)
		metrics.ObserveLoad(time.Since(loadStart))
		if loadErr != nil {
			metrics.SetErrorStage("engine")
			err = fail(c, loadErr)
			return err
		}
		metrics.SetViewsReturned(views)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, views)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type boardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func postBoard(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		title, err := domain.ParseBoardTitle(req.Title)
		if err != nil {
			return fail(c, err)
		}
		board, err := svc.CreateBoard(c.Request().Context(), userID, title, req.Description)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func getAvailableTitles(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		titles, err := svc.AvailableTitles(c.Request().Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		if titles == nil {
			titles = []domain.BoardTitle{}
		}
		return c.JSON(http.StatusOK, titles)
	}
}

func getUserBoardTitles(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := userFromHeader(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		titles, err := svc.BoardTitlesByUsername(c.Request().Context(), c.Param("username"))
		if err != nil {
			return fail(c, err)
		}
		if titles == nil {
			titles = []domain.BoardTitle{}
		}
		return c.JSON(http.StatusOK, titles)
	}
}

func boardTitleParam(c echo.Context) (domain.BoardTitle, error) {
	return domain.ParseBoardTitle(c.Param("title"))
}

type boardUpdateRequest struct {
	Description string `json:"description"`
}

func putBoard(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		title, err := boardTitleParam(c)
		if err != nil {
			return fail(c, err)
		}
		var req boardUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := svc.UpdateBoardDescription(c.Request().Context(), userID, title, req.Description); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteBoard(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		title, err := boardTitleParam(c)
		if err != nil {
			return fail(c, err)
		}
		if err := svc.DeleteBoard(c.Request().Context(), userID, title); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getBoardTasks(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		title, err := boardTitleParam(c)
		if err != nil {
			return fail(c, err)
		}
		view, err := svc.BoardTasks(c.Request().Context(), userID, title)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Image       []byte     `json:"image"`
	Due         *time.Time `json:"due"`
	Color       string     `json:"color"`
}

func postTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		title, err := boardTitleParam(c)
		if err != nil {
			return fail(c, err)
		}
		var req taskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.CreateTask(c.Request().Context(), userID, title, core.TaskDraft{
			Title:       req.Title,
			Description: req.Description,
			URL:         req.URL,
			Image:       req.Image,
			Due:         req.Due,
			Color:       req.Color,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func taskIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid task id")
	}
	return id, nil
}

type taskUpdateRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Due         *time.Time        `json:"due"`
	Color       *string           `json:"color"`
	URL         *string           `json:"url"`
	Image       []byte            `json:"image"`
	RemoveImage bool              `json:"removeImage"`
	State       *domain.TaskState `json:"state"`
}

func patchTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		var req taskUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.State != nil && *req.State != domain.StateCompleted && *req.State != domain.StateNotCompleted {
			return c.String(http.StatusBadRequest, "invalid state")
		}
		err = svc.UpdateTask(c.Request().Context(), userID, taskID, core.TaskUpdate{
			Title:       req.Title,
			Description: req.Description,
			Due:         req.Due,
			Color:       req.Color,
			URL:         req.URL,
			Image:       req.Image,
			RemoveImage: req.RemoveImage,
			State:       req.State,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := svc.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type moveRequest struct {
	Board string `json:"board"`
}

func moveTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		dest, err := domain.ParseBoardTitle(req.Board)
		if err != nil {
			return fail(c, err)
		}
		if err := svc.MoveTask(c.Request().Context(), userID, taskID, dest); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type reorderRequest struct {
	Position int `json:"position"`
}

func reorderTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := svc.ReorderTask(c.Request().Context(), userID, taskID, req.Position); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type shareRequest struct {
	Recipient string `json:"recipient"`
	Board     string `json:"board"`
}

func shareTask(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		var req shareRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		dest, err := domain.ParseBoardTitle(req.Board)
		if err != nil {
			return fail(c, err)
		}
		share, err := svc.ShareTask(c.Request().Context(), userID, taskID, req.Recipient, dest)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, share)
	}
}

func revokeShare(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := svc.RevokeShare(c.Request().Context(), userID, taskID, c.Param("username")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func removeMyShare(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := svc.RemoveMyShare(c.Request().Context(), userID, taskID); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getRecipients(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		taskID, err := taskIDParam(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		users, err := svc.ShareRecipients(c.Request().Context(), userID, taskID)
		if err != nil {
			return fail(c, err)
		}
		if users == nil {
			users = []domain.User{}
		}
		return c.JSON(http.StatusOK, users)
	}
}

func searchTasks(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		tasks, err := svc.SearchTasks(c.Request().Context(), userID, c.QueryParam("q"))
		if err != nil {
			return fail(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func dueTasks(svc Service, auth Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFromHeader(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		raw := c.QueryParam("before")
		if raw == "" {
			return c.String(http.StatusBadRequest, "before query parameter is required")
		}
		deadline, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid before timestamp")
		}
		tasks, err := svc.DueBefore(c.Request().Context(), userID, deadline)
		if err != nil {
			return fail(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, tasks)
	}
}
