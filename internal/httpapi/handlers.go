package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/globaltime"
)

const (
	defaultPageSize  = 25
	maxPageSize      = 200
	defaultLinkLimit = 100
	maxLinkLimit     = 1000
)

type worldviewItem struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Level             int16     `json:"level"`
	ParentWorldviewID *string   `json:"parent_worldview_id,omitempty"`
	Version           int       `json:"version"`
	Archived          bool      `json:"archived"`
	Frame             db.JSON   `json:"frame,omitempty"`
	HasEmbedding      bool      `json:"has_embedding"`
	TotalPerceptions  int       `json:"total_perceptions"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type linkItem struct {
	PerceptionID   string    `json:"perception_id"`
	WorldviewID    string    `json:"worldview_id"`
	RelevanceScore float64   `json:"relevance_score"`
	Method         string    `json:"method"`
	CreatedAt      time.Time `json:"created_at"`
}

type clusterItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"cluster_name"`
	ContextIssue *string   `json:"context_issue,omitempty"`
	Strategy     string    `json:"strategy"`
	Keywords     []string  `json:"keywords"`
	LogicCount   int       `json:"logic_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("database ping failed")
		return internalError(c, "Database unavailable")
	}
	return success(c, map[string]any{
		"service": "worldview",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	top, err := parsePositiveInt(c.QueryParam("top"), 10, 1, 100)
	if err != nil {
		return failValidation(c, map[string]string{"top": err.Error()})
	}
	stats, err := s.store.QueryWorldviewStats(c.Request().Context(), globaltime.UTC(), top)
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleWorldviews(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	filter := db.WorldviewFilter{
		IncludeArchived: strings.EqualFold(strings.TrimSpace(c.QueryParam("include_archived")), "true"),
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	}
	if raw := strings.TrimSpace(c.QueryParam("level")); raw != "" {
		level, err := parsePositiveInt(raw, 0, 0, 2)
		if err != nil {
			return failValidation(c, map[string]string{"level": err.Error()})
		}
		filter.Levels = []int16{int16(level)}
	}
	if raw := strings.TrimSpace(c.QueryParam("version")); raw != "" {
		version, err := parsePositiveInt(raw, 0, 1, 1_000)
		if err != nil {
			return failValidation(c, map[string]string{"version": err.Error()})
		}
		filter.Version = version
	}
	if raw := strings.TrimSpace(c.QueryParam("parent_id")); raw != "" {
		if _, err := uuid.Parse(raw); err != nil {
			return failValidation(c, map[string]string{"parent_id": "must be a UUID"})
		}
		filter.ParentID = raw
	}

	ctx := c.Request().Context()
	total, err := s.store.CountWorldviews(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("count worldviews failed")
		return internalError(c, "Failed to load worldviews")
	}
	rows, err := s.store.ListWorldviews(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list worldviews failed")
		return internalError(c, "Failed to load worldviews")
	}

	items := make([]worldviewItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toWorldviewItem(row))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
	})
}

func (s *Server) handleWorldviewDetail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return failValidation(c, map[string]string{"id": "must be a UUID"})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultLinkLimit, 1, maxLinkLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	ctx := c.Request().Context()
	row, err := s.store.GetWorldview(ctx, id)
	if errors.Is(err, db.ErrWorldviewNotFound) {
		return failNotFound(c, "Worldview not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("worldview_id", id).Msg("get worldview failed")
		return internalError(c, "Failed to load worldview")
	}

	links, err := s.store.ListLinks(ctx, db.LinkFilter{WorldviewID: id, Limit: limit})
	if err != nil {
		s.logger.Error().Err(err).Str("worldview_id", id).Msg("list worldview links failed")
		return internalError(c, "Failed to load worldview links")
	}

	return success(c, map[string]any{
		"worldview": toWorldviewItem(*row),
		"links":     toLinkItems(links),
	})
}

func (s *Server) handlePerceptionLinks(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return failValidation(c, map[string]string{"id": "must be a UUID"})
	}
	method := strings.TrimSpace(c.QueryParam("method"))

	links, err := s.store.ListLinks(c.Request().Context(), db.LinkFilter{PerceptionID: id, Method: method})
	if err != nil {
		s.logger.Error().Err(err).Str("perception_id", id).Msg("list perception links failed")
		return internalError(c, "Failed to load perception links")
	}
	return success(c, map[string]any{
		"perception_id": id,
		"items":         toLinkItems(links),
	})
}

func (s *Server) handleClusters(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 50, 1, 500)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	rows, err := s.store.ListClusters(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list clusters failed")
		return internalError(c, "Failed to load clusters")
	}

	items := make([]clusterItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, clusterItem{
			ID:           row.ID,
			Name:         row.ClusterName,
			ContextIssue: row.ContextIssue,
			Strategy:     row.Strategy,
			Keywords:     row.Keywords,
			LogicCount:   row.LogicCount,
			CreatedAt:    row.CreatedAt,
		})
	}
	return success(c, map[string]any{"items": items})
}

func toWorldviewItem(row db.Worldview) worldviewItem {
	return worldviewItem{
		ID:                row.ID,
		Title:             row.Title,
		Level:             row.Level,
		ParentWorldviewID: row.ParentWorldviewID,
		Version:           row.Version,
		Archived:          row.Archived,
		Frame:             row.Frame,
		HasEmbedding:      len(db.VectorSlice(row.Embedding)) > 0,
		TotalPerceptions:  row.TotalPerceptions,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toLinkItems(rows []db.PerceptionWorldviewLink) []linkItem {
	items := make([]linkItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, linkItem{
			PerceptionID:   row.PerceptionID,
			WorldviewID:    row.WorldviewID,
			RelevanceScore: row.RelevanceScore,
			Method:         row.Method,
			CreatedAt:      row.CreatedAt,
		})
	}
	return items
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
