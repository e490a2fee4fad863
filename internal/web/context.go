package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/bulkimport/internal/auth"
	"github.com/JonMunkholm/bulkimport/internal/core"
	mw "github.com/JonMunkholm/bulkimport/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for upload
// history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequestMeta(ctx, core.RequestMeta{
		IPAddress: mw.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// requireSeller resolves the calling seller and stores it in the context.
// Requests without a resolvable seller get 401.
func (s *Server) requireSeller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.accessor.Current(r.Context())
		if err != nil {
			s.respondError(w, r, err, http.StatusUnauthorized)
			return
		}
		ctx := auth.ContextWithUser(r.Context(), u)
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(ctx, r)))
	})
}

// sellerID returns the seller placed in the context by requireSeller.
func sellerID(r *http.Request) string {
	u, _ := auth.UserFromContext(r.Context())
	return u.ID
}
