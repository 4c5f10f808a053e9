// Package api exposes the ledger over HTTP with gin.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tiliavir/timeledger/internal/ledger"
	"github.com/Tiliavir/timeledger/internal/model"
	"github.com/Tiliavir/timeledger/internal/timecalc"
)

type Handler struct {
	Ledger *ledger.Ledger
}

// NewRouter returns an engine with logging, recovery and every route registered.
func NewRouter(l *ledger.Ledger) *gin.Engine {
	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	Register(r.Group("/api"), l)
	return r
}

// Register mounts the ledger routes on r.
func Register(r *gin.RouterGroup, l *ledger.Ledger) {
	h := &Handler{Ledger: l}
	r.GET("/workers", h.ListWorkers)
	r.POST("/workers", h.AddWorker)
	r.PUT("/workers/:id", h.RenameWorker)

	r.POST("/subjects/:id/clock-in", h.ClockIn)
	r.POST("/subjects/:id/clock-out", h.ClockOut)
	r.GET("/subjects/:id/status", h.Status)
	r.GET("/subjects/:id/hours", h.Hours)
	r.GET("/subjects/:id/week", h.Week)

	r.GET("/records", h.ListRecords)
}

type WorkerDTO struct {
	Name string `json:"name" binding:"max=100"`
}

type ClockDTO struct {
	// At is an RFC 3339 timestamp. Empty means now.
	At string `json:"at"`
}

type StatusDTO struct {
	Subject model.SubjectID `json:"subject"`
	Name    string          `json:"name"`
	Open    bool            `json:"open"`
	Record  *model.Record   `json:"record"`
}

type HoursDTO struct {
	Date     string `json:"date"`
	Seconds  int64  `json:"seconds"`
	Hours    string `json:"hours"`
	Sessions int    `json:"sessions"`
	Open     int    `json:"open"`
}

type WeekDTO struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Seconds   int64  `json:"seconds"`
	Hours     string `json:"hours"`
	Sessions  int    `json:"sessions"`
	Open      int    `json:"open"`
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownSubject):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyClockedIn), errors.Is(err, ledger.ErrNoOpenSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), NewErrorResponse(err.Error()))
}

func (h *Handler) ListWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(h.Ledger.Workers()))
}

func (h *Handler) AddWorker(c *gin.Context) {
	var dto WorkerDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(FormatBindingError(err)))
		return
	}

	w, err := h.Ledger.AddWorker(dto.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewSuccessResponse(w))
}

func (h *Handler) RenameWorker(c *gin.Context) {
	var dto WorkerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(FormatBindingError(err)))
		return
	}

	w, err := h.Ledger.RenameWorker(model.SubjectID(c.Param("id")), dto.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(w))
}

// clockTime reads the optional "at" of a clock request. An empty body is allowed.
func (h *Handler) clockTime(c *gin.Context) (time.Time, error) {
	var dto ClockDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		return time.Time{}, err
	}
	if dto.At == "" {
		return h.Ledger.Now(), nil
	}
	at, err := time.Parse(time.RFC3339, dto.At)
	if err != nil {
		return time.Time{}, &timeParseError{value: dto.At}
	}
	return at, nil
}

func (h *Handler) ClockIn(c *gin.Context) {
	at, err := h.clockTime(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(FormatBindingError(err)))
		return
	}

	rec, err := h.Ledger.ClockIn(model.SubjectID(c.Param("id")), at)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewSuccessResponse(rec))
}

func (h *Handler) ClockOut(c *gin.Context) {
	at, err := h.clockTime(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(FormatBindingError(err)))
		return
	}

	rec, err := h.Ledger.ClockOut(model.SubjectID(c.Param("id")), at)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(rec))
}

func (h *Handler) Status(c *gin.Context) {
	id := model.SubjectID(c.Param("id"))
	w, err := h.Ledger.Worker(id)
	if err != nil {
		fail(c, err)
		return
	}

	dto := StatusDTO{Subject: w.ID, Name: w.Name}
	if rec, ok := h.Ledger.OpenSession(id); ok {
		dto.Open = true
		dto.Record = &rec
	}
	c.JSON(http.StatusOK, NewSuccessResponse(dto))
}

// queryDate parses the named YYYY-MM-DD query parameter in the ledger's
// location, defaulting to today.
func (h *Handler) queryDate(c *gin.Context, name string) (time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return h.Ledger.Now(), nil
	}
	return timecalc.ParseDate(s, h.Ledger.Location())
}

func (h *Handler) Hours(c *gin.Context) {
	day, err := h.queryDate(c, "date")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	total, err := h.Ledger.HoursForDay(model.SubjectID(c.Param("id")), day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(HoursDTO{
		Date:     timecalc.DateKey(day),
		Seconds:  int64(total.Duration / time.Second),
		Hours:    timecalc.FormatHours(total.Duration),
		Sessions: total.Sessions,
		Open:     total.Open,
	}))
}

func (h *Handler) Week(c *gin.Context) {
	anchor, err := h.queryDate(c, "anchor")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	total, err := h.Ledger.WeeklyHours(model.SubjectID(c.Param("id")), anchor)
	if err != nil {
		fail(c, err)
		return
	}
	monday, sunday := timecalc.WeekRange(anchor)
	c.JSON(http.StatusOK, NewSuccessResponse(WeekDTO{
		WeekStart: timecalc.DateKey(monday),
		WeekEnd:   timecalc.DateKey(sunday),
		Seconds:   int64(total.Duration / time.Second),
		Hours:     timecalc.FormatHours(total.Duration),
		Sessions:  total.Sessions,
		Open:      total.Open,
	}))
}

func (h *Handler) ListRecords(c *gin.Context) {
	subject := c.Query("subject")
	if subject == "" {
		c.JSON(http.StatusOK, NewSuccessResponse(h.Ledger.Records()))
		return
	}

	records, err := h.Ledger.RecordsFor(model.SubjectID(subject))
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	c.JSON(http.StatusOK, NewSuccessResponse(records))
}
