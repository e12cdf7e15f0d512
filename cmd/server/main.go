// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/packduel/packduel/internal/auth"
	"github.com/packduel/packduel/internal/cache"
	"github.com/packduel/packduel/internal/challenge"
	"github.com/packduel/packduel/internal/economy"
	"github.com/packduel/packduel/internal/handlers"
	"github.com/packduel/packduel/internal/middleware"
	"github.com/packduel/packduel/internal/packs"
	"github.com/packduel/packduel/internal/store"
	"github.com/packduel/packduel/internal/tournament"
	"github.com/packduel/packduel/internal/users"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	st := connectStore(logger)

	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, battle event feed disabled: %v", err)
	}

	catalog := packs.NewStoreCatalog(st)
	resolver := packs.NewResolver(catalog)

	ledger := economy.NewLedger(st, economy.Config{
		MinAmount: envInt64("LEDGER_MIN_AMOUNT", 1),
		MaxAmount: envInt64("LEDGER_MAX_AMOUNT", 1_000_000),
	})

	coordinator := challenge.NewCoordinator(ledger, resolver, challenge.Config{
		Expiry: time.Duration(envInt64("CHALLENGE_EXPIRY_MINUTES", 5)) * time.Minute,
	})

	engine := tournament.NewEngine(st, ledger, resolver, catalog)
	userSvc := users.NewService(st)
	startingGrant := envInt64("STARTING_GRANT", 500)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// user endpoints
	mux.Handle("/user/create", logged(handlers.CreateUserHandler(userSvc, ledger, startingGrant)))
	mux.Handle("/user/login", logged(handlers.LoginHandler(userSvc)))
	mux.Handle("/user/balance", logged(handlers.BalanceHandler(ledger)))

	// challenge endpoints
	mux.Handle("/challenge/issue", logged(handlers.IssueChallengeHandler(coordinator)))
	mux.Handle("/challenge/accept", logged(handlers.AcceptChallengeHandler(coordinator)))
	mux.Handle("/challenge/reject", logged(handlers.RejectChallengeHandler(coordinator)))
	mux.Handle("/challenge/cancel", logged(handlers.CancelChallengeHandler(coordinator)))

	// tournament endpoints
	mux.Handle("/tournament/create", logged(handlers.CreateTournamentHandler(engine)))
	mux.Handle("/tournament/join", logged(handlers.JoinTournamentHandler(engine, userSvc)))
	mux.Handle("/tournament/leave", logged(handlers.LeaveTournamentHandler(engine)))
	mux.Handle("/tournament/start", logged(handlers.StartTournamentHandler(engine)))
	mux.Handle("/tournament/ready", logged(handlers.ReadyMatchHandler(engine)))
	mux.Handle("/tournament/play", logged(handlers.PlayMatchHandler(engine)))
	mux.Handle("/tournament/cancel", logged(handlers.CancelTournamentHandler(engine)))
	mux.Handle("/tournament/get", logged(handlers.GetTournamentHandler(engine)))
	mux.Handle("/tournament/list", logged(handlers.ListOpenTournamentsHandler(engine)))
	mux.Handle("/tournament/mine", logged(handlers.MyTournamentsHandler(engine)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// connectStore picks the persistent store when DATABASE_URL is set, else an
// in-memory store suitable only for a single node.
func connectStore(logger *logrus.Logger) store.Store {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemory()
	}
	pg, err := store.NewPostgres(context.Background(), connString)
	if err != nil {
		log.Fatalf("unable to connect store: %v", err)
	}
	return pg
}

func envInt64(key string, def int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
