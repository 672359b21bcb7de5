package service

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	historybiz "github.com/lk2023060901/metasearch/internal/history/biz"
	apperrors "github.com/lk2023060901/metasearch/internal/pkg/errors"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/response"
	"github.com/lk2023060901/metasearch/internal/search/biz"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"go.uber.org/zap"
)

const defaultHistoryCount = 20

// EngineLister 列出已配置的引擎
type EngineLister interface {
	Engines() []string
}

// SearchService 搜索 HTTP 服务
type SearchService struct {
	uc      *biz.SearchUseCase
	engines EngineLister
	logger  *logger.Logger
}

// NewSearchService 创建搜索服务
func NewSearchService(uc *biz.SearchUseCase, engines EngineLister, logger *logger.Logger) *SearchService {
	return &SearchService{
		uc:      uc,
		engines: engines,
		logger:  logger,
	}
}

// RegisterRoutes 注册 /api/v1 下的搜索路由
func (s *SearchService) RegisterRoutes(r gin.IRouter) {
	r.GET("/search", s.Search)
	r.GET("/history", s.ListHistory)
	r.GET("/engines", s.ListEngines)
}

// Search 执行搜索
func (s *SearchService) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	res, err := s.uc.Search(c.Request.Context(), req.toQuery())
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toSearchResponse(res))
}

// ListHistory 按索引顺序列出缓存中的查询
func (s *SearchService) ListHistory(c *gin.Context) {
	var req ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = defaultHistoryCount
	}

	page, err := s.uc.History(c.Request.Context(), req.Offset, req.Count)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &HistoryResponse{
		Offset:  page.Offset,
		Total:   page.Total,
		Queries: nonNil(page.Queries),
	})
}

// ListEngines 列出已配置的引擎
func (s *SearchService) ListEngines(c *gin.Context) {
	response.Success(c, &EnginesResponse{Engines: nonNil(s.engines.Engines())})
}

// handleError 把领域错误映射为业务错误码
func (s *SearchService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrEmptyQuery),
		errors.Is(err, types.ErrQueryTooLong),
		errors.Is(err, types.ErrInvalidQuery),
		errors.Is(err, types.ErrNoEngines):
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams, err.Error()))
	case errors.Is(err, biz.ErrNoEngines):
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrEngineNotConfigured))
	case errors.Is(err, types.ErrAllEnginesFailed):
		s.logger.Warn("search failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrSearchFailed))
	case errors.Is(err, context.DeadlineExceeded):
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrSearchTimeout))
	case errors.Is(err, biz.ErrCacheDisabled):
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrCacheDisabled))
	case historybiz.IsStoreUnavailable(err):
		s.logger.Error("query cache unavailable", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrCacheUnavailable))
	default:
		s.logger.Error("unexpected search error", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
	}
}
