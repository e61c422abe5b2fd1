package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tonroll/tonroll/internal/auth"
	"github.com/tonroll/tonroll/internal/dice"
	"github.com/tonroll/tonroll/internal/handlers"
	"github.com/tonroll/tonroll/internal/ledger"
	"github.com/tonroll/tonroll/internal/lobby"
	"github.com/tonroll/tonroll/internal/middleware"
	"github.com/tonroll/tonroll/internal/settlement"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init: %v", err)
	}

	wallet := ledger.New()
	settler := settlement.New(wallet, payoutFromEnv(logger))
	manager := lobby.NewManager(wallet, settler, dice.NewDie(), logger)
	if secs := os.Getenv("COUNTDOWN_SECONDS"); secs != "" {
		n, err := strconv.Atoi(secs)
		if err != nil || n <= 0 {
			log.Fatalf("invalid COUNTDOWN_SECONDS: %q", secs)
		}
		manager.Countdown = time.Duration(n) * time.Second
	}

	srv := handlers.NewServer(logger, manager, wallet)
	handler := middleware.Logging(logger)(srv.Routes())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// payoutFromEnv picks the payout policy. Rake with the configured house fee
// is the default; PAYOUT_POLICY=winner_takes_all turns the fee off.
func payoutFromEnv(logger *logrus.Logger) settlement.Payout {
	if os.Getenv("PAYOUT_POLICY") == "winner_takes_all" {
		return settlement.WinnerTakesAll{}
	}
	rate := settlement.DefaultFeeRate
	if s := os.Getenv("HOUSE_FEE_RATE"); s != "" {
		r, err := decimal.NewFromString(s)
		if err != nil || r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			log.Fatalf("invalid HOUSE_FEE_RATE: %q", s)
		}
		rate = r
	}
	logger.WithField("fee_rate", rate).Info("rake payout enabled")
	return settlement.Rake{Rate: rate}
}
