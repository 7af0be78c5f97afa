package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20

	msgNotFound          = "Product not found"
	msgReviewAdded       = "Review added"
	msgPurchaseCompleted = "Purchase completed"
	msgInsufficientStock = "insufficient stock"
)

type Server struct {
	Service *Service
	Log     *zap.Logger

	// ReviewLimiter throttles POST /review per client; nil disables it.
	ReviewLimiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route("/api", func(api chi.Router) {
		api.Get("/products", s.list)
		api.Get("/products/{id}", s.get)

		if s.ReviewLimiter != nil {
			api.With(s.ReviewLimiter.Middleware).Post("/review/{id}", s.addReview)
		} else {
			api.Post("/review/{id}", s.addReview)
		}

		api.Post("/purchase", s.purchase)

		api.Route("/admin", func(adm chi.Router) {
			adm.Post("/stock", s.adjustStock)
			adm.Get("/dashboard", s.dashboard)
		})
	})

	return r
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Service.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Service.ListProducts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		kit.WriteText(w, http.StatusNotFound, msgNotFound)
		return
	}

	p, err := s.Service.GetProduct(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

type reviewReq struct {
	Rating  *float64 `json:"rating"`
	Comment *string  `json:"comment"`
}

type reviewResp struct {
	Message string  `json:"message"`
	Product Product `json:"product"`
}

func (s *Server) addReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		kit.WriteText(w, http.StatusNotFound, msgNotFound)
		return
	}

	var req reviewReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.Rating == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "rating required", nil)
		return
	}
	if req.Comment == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "comment required", nil)
		return
	}

	p, err := s.Service.AddReview(r.Context(), id, *req.Rating, *req.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, reviewResp{Message: msgReviewAdded, Product: p})
}

type cartLineReq struct {
	ID       *int64 `json:"id"`
	Quantity *int64 `json:"quantity"`
}

type purchaseReq struct {
	Cart []cartLineReq `json:"cart"`
}

type purchaseResp struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Receipt *Receipt `json:"receipt,omitempty"`
	ID      *int64   `json:"id,omitempty"`
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if len(req.Cart) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "cart required", nil)
		return
	}

	cart := make([]CartLine, 0, len(req.Cart))
	for i, line := range req.Cart {
		if line.ID == nil || line.Quantity == nil {
			kit.WriteError(w, r, http.StatusBadRequest, "cart line requires id and quantity", map[string]any{"line": i})
			return
		}
		cart = append(cart, CartLine{ID: *line.ID, Quantity: *line.Quantity})
	}

	receipt, err := s.Service.Purchase(r.Context(), cart)
	if err != nil {
		var se *StockError
		if errors.As(err, &se) {
			kit.WriteJSON(w, http.StatusBadRequest, purchaseResp{
				Message: msgInsufficientStock,
				ID:      &se.ProductID,
			})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, purchaseResp{
		Success: true,
		Message: msgPurchaseCompleted,
		Receipt: &receipt,
	})
}

type stockReq struct {
	ID       *int64 `json:"id"`
	Quantity *int64 `json:"quantity"`
}

type stockResp struct {
	Success  bool  `json:"success"`
	NewStock int64 `json:"newStock"`
}

func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.ID == nil || req.Quantity == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "id and quantity required", nil)
		return
	}

	stock, err := s.Service.AdjustStock(r.Context(), *req.ID, *req.Quantity)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, stockResp{Success: true, NewStock: stock})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.Dashboard(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteText(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrInvalidCart),
		errors.Is(err, ErrNegativeStock),
		errors.Is(err, ErrStockOverflow):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrStorageRead):
		s.logger().Error("catalog unavailable", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "storage unavailable", nil)
	default:
		s.logger().Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

// productID parses the {id} segment. A non-numeric id can never match a
// product, so callers answer it like any other unknown id.
func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
