package controllers

import (
	"net/http"

	"github.com/anandkp/shelfwise-backend/api/responses"
	"github.com/anandkp/shelfwise-backend/pkg/config"
	"github.com/anandkp/shelfwise-backend/pkg/db"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shelfwise-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis so load balancers stop
// routing to an instance that lost either backend.
func HealthReady(cfg *config.Config, database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shelfwise-Env", cfg.App.Env)
		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
