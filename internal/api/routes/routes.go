package routes

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/weathershield/ledger-service/internal/api/handlers"
	"github.com/yourusername/weathershield/ledger-service/internal/api/middleware"
	"github.com/yourusername/weathershield/ledger-service/internal/config"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/emergency"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/insurance"
	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
	"github.com/yourusername/weathershield/ledger-service/internal/ledger"
	"github.com/yourusername/weathershield/ledger-service/internal/models"
	"github.com/yourusername/weathershield/ledger-service/internal/observability"
	"github.com/yourusername/weathershield/ledger-service/internal/repository"
	"github.com/yourusername/weathershield/ledger-service/internal/service"
	"github.com/yourusername/weathershield/ledger-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Setup(router *gin.Engine, cfg *config.Config) {
	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize components
	repo := repository.NewLedgerRepository(db)
	metrics := observability.NewMetrics()

	env := ledger.NewEnv(nil)
	owner := common.HexToAddress(cfg.OwnerAddress)
	seedBalances(env, cfg, owner)

	reg := registry.NewStationRegistry(env, owner)
	ins := insurance.NewInsuranceEngine(env, owner, common.HexToAddress(cfg.InsuranceContract), reg)
	emg := emergency.NewResourceAllocator(env, owner, common.HexToAddress(cfg.EmergencyContract))

	ledgerService := service.NewLedgerService(env, reg, ins, emg, repo, metrics)

	if cfg.SeedInitialFunding {
		seedContracts(ledgerService, cfg, owner)
	}

	weatherHandler := handlers.NewWeatherHandler(ledgerService)
	insuranceHandler := handlers.NewInsuranceHandler(ledgerService)
	emergencyHandler := handlers.NewEmergencyHandler(ledgerService)
	chainHandler := handlers.NewChainHandler(ledgerService)

	router.Use(middleware.RequestID())

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "weathershield-ledger"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		weather := v1.Group("/weather")
		{
			weather.POST("/stations", weatherHandler.RegisterStation)
			weather.GET("/stations/:address", weatherHandler.GetStation)
			weather.POST("/stations/:address/toggle", weatherHandler.ToggleStation)
			weather.POST("/data", weatherHandler.SubmitReading)
			weather.GET("/data/recent", weatherHandler.RecentReadings)
			weather.GET("/data/:id", weatherHandler.GetReading)
			weather.POST("/data/:id/verify", weatherHandler.VerifyReading)
			weather.GET("/data/location/:location", weatherHandler.ReadingsByLocation)
		}

		ins := v1.Group("/insurance")
		{
			ins.POST("/policies", insuranceHandler.CreatePolicy)
			ins.GET("/policies/:id", insuranceHandler.GetPolicy)
			ins.GET("/policies/holder/:address", insuranceHandler.PoliciesByHolder)
			ins.GET("/policies/holder/:address/history", insuranceHandler.PoliciesByHolderMirror)
			ins.POST("/claims", insuranceHandler.SubmitClaim)
			ins.GET("/claims/:id", insuranceHandler.GetClaim)
			ins.GET("/quote", insuranceHandler.Quote)
			ins.GET("/pool", insuranceHandler.PoolStatus)
			ins.POST("/pool/deposit", insuranceHandler.DepositFunds)
			ins.POST("/pool/withdraw", insuranceHandler.WithdrawFunds)
		}

		emg := v1.Group("/emergency")
		{
			emg.POST("/responders", emergencyHandler.AuthorizeResponder)
			emg.PUT("/responders/:address/level", emergencyHandler.SetResponderLevel)
			emg.POST("/responders/:address/toggle", emergencyHandler.ToggleResponder)
			emg.POST("/events", emergencyHandler.CreateEmergencyEvent)
			emg.GET("/events", emergencyHandler.EmergencyEvents)
			emg.POST("/requests", emergencyHandler.RequestResources)
			emg.GET("/requests/pending", emergencyHandler.PendingRequests)
			emg.GET("/requests/pending/history", emergencyHandler.PendingRequestsMirror)
			emg.GET("/requests/:id", emergencyHandler.GetRequest)
			emg.POST("/requests/:id/approve", emergencyHandler.ApproveRequest)
			emg.POST("/requests/:id/reject", emergencyHandler.RejectRequest)
			emg.POST("/allocations", emergencyHandler.AllocateResources)
			emg.POST("/allocations/:id/deliver", emergencyHandler.MarkDelivered)
			emg.GET("/inventory", emergencyHandler.Inventory)
			emg.POST("/inventory", emergencyHandler.AddResources)
			emg.GET("/fund", emergencyHandler.FundStatus)
			emg.POST("/fund/deposit", emergencyHandler.DepositFund)
		}

		chain := v1.Group("/blockchain")
		{
			chain.GET("/events", chainHandler.Events)
			chain.GET("/balances/:address", chainHandler.Balance)
			chain.GET("/stats", chainHandler.Stats)
		}
	}
}

// seedBalances credits the genesis accounts so their first calls can carry
// value.
func seedBalances(env *ledger.Env, cfg *config.Config, owner common.Address) {
	balance, ok := new(big.Int).SetString(cfg.GenesisBalance, 10)
	if !ok {
		logger.Fatal("Invalid genesis balance", zap.String("value", cfg.GenesisBalance))
	}
	env.Credit(owner, balance)
	for _, account := range cfg.GenesisAccounts {
		if !common.IsHexAddress(account) {
			logger.Warn("Skipping invalid genesis account", zap.String("account", account))
			continue
		}
		env.Credit(common.HexToAddress(account), balance)
	}
}

// seedContracts bootstraps the insurance pool, the emergency fund, and the
// starting inventory through ordinary owner calls so the event feed and the
// read model see them.
func seedContracts(svc *service.LedgerService, cfg *config.Config, owner common.Address) {
	ctx := context.Background()

	if seed, ok := new(big.Int).SetString(cfg.InsurancePoolSeed, 10); ok && seed.Sign() > 0 {
		if err := svc.DepositFunds(ctx, ledger.Call{Caller: owner, Value: seed}); err != nil {
			logger.Warn("Failed to seed insurance pool", zap.Error(err))
		}
	}
	if seed, ok := new(big.Int).SetString(cfg.EmergencyFundSeed, 10); ok && seed.Sign() > 0 {
		if err := svc.DepositEmergencyFund(ctx, ledger.Call{Caller: owner, Value: seed}); err != nil {
			logger.Warn("Failed to seed emergency fund", zap.Error(err))
		}
	}

	if cfg.InitialInventory == 0 {
		return
	}
	// Inventory management needs responder authority, so the owner enrolls
	// itself as the coordinating responder.
	call := ledger.Call{Caller: owner}
	if err := svc.AuthorizeResponder(ctx, call, owner, "Coordinator", "WeatherShield", emergency.MaxResponderLevel); err != nil {
		logger.Warn("Failed to authorize coordinator", zap.Error(err))
		return
	}
	for _, resourceType := range []emergency.ResourceType{
		emergency.Food, emergency.Water, emergency.Medical,
		emergency.Shelter, emergency.Evacuation, emergency.Equipment,
	} {
		if err := svc.AddResources(ctx, call, resourceType, cfg.InitialInventory); err != nil {
			logger.Warn("Failed to seed inventory",
				zap.String("resource_type", resourceType.String()), zap.Error(err))
		}
	}
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if cfg.DatabaseURL == "" {
		logger.Info("No database URL configured, using in-memory SQLite")
		// Use pure Go SQLite (no CGO required)
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
		}
	} else {
		logger.Info("Connecting to PostgreSQL database")
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
	}

	// Auto-migrate models
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database initialized successfully")
	return db, nil
}
