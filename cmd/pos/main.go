package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mariuscautis/menu-hub-sub000/internal/config"
	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	"github.com/mariuscautis/menu-hub-sub000/internal/handler"
	"github.com/mariuscautis/menu-hub-sub000/internal/idgen"
	"github.com/mariuscautis/menu-hub-sub000/internal/infra/db"
	infraGateway "github.com/mariuscautis/menu-hub-sub000/internal/infra/gateway"
	infraRepo "github.com/mariuscautis/menu-hub-sub000/internal/infra/repository"
	"github.com/mariuscautis/menu-hub-sub000/internal/server"
	"github.com/mariuscautis/menu-hub-sub000/internal/usecase"

	"github.com/joho/godotenv"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無ければ無いでいい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//ローカルストア接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.PendingOrder{},
		&model.PendingUpdate{},
		&model.PendingPayment{},
		&model.TableState{},
	); err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	//Repository（GORM実装）生成
	tx := infraRepo.NewTxManagerGorm(gormDB)

	//リモートゲートウェイとオンライン判定
	httpClient := &http.Client{Timeout: cfg.RemoteTimeout}
	gw := infraGateway.NewHTTPGateway(cfg.RemoteBaseURL, cfg.RestaurantID, httpClient, logger)
	oracle := infraGateway.NewHTTPProber(cfg.RemoteBaseURL, 2*time.Second, cfg.ProbeInterval)

	//usecaseに渡す部品
	idGen := idgen.NewGenerator()
	clock := &realClock{}

	//Usecase生成
	reconcileUC := usecase.NewReconcileUsecase(tx, gw, oracle, idGen, clock, logger, cfg.RestaurantID)
	authUC := usecase.NewAuthUsecase(cfg.StaffPINHash, cfg.ManagerPINHash, cfg.JWTSecret, 12*time.Hour, clock)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)
	tableH := handler.NewTableHandler(reconcileUC)
	syncH := handler.NewSyncHandler(reconcileUC)

	//Server起動
	e := server.New(cfg, authH, tableH, syncH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := e.Start(addr); err != nil {
		panic(err)
	}
}
