package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/cache"
	"github.com/Priew-rasri/Ncare-sub000/internal/config"
	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
	"github.com/Priew-rasri/Ncare-sub000/internal/httpapi"
	"github.com/Priew-rasri/Ncare-sub000/internal/inventory"
	"github.com/Priew-rasri/Ncare-sub000/internal/receipt"
	"github.com/Priew-rasri/Ncare-sub000/internal/sale"
	"github.com/Priew-rasri/Ncare-sub000/internal/shift"
	"github.com/Priew-rasri/Ncare-sub000/internal/store"
	"github.com/Priew-rasri/Ncare-sub000/internal/store/memory"
	pgstore "github.com/Priew-rasri/Ncare-sub000/internal/store/postgres"
	"github.com/Priew-rasri/Ncare-sub000/internal/xid"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	receipts := cache.ReceiptCache(cache.NoopReceiptCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReceiptCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop receipt cache", err)
		} else {
			receipts = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("receipt cache: redis")
		}
	} else {
		log.Println("receipt cache: noop")
	}

	// The ledger owns live stock; the repository only reloads it at boot.
	ledger := inventory.NewLedger()
	batches, err := repo.ListAllBatches(ctx)
	if err != nil {
		log.Fatalf("load batches: %v", err)
	}
	ledger.Load(batches)
	log.Printf("inventory: %d batches loaded", len(batches))

	register := shift.NewRegister(func() string { return xid.New("shift") })
	if open, err := repo.GetActiveShift(ctx, cfg.TerminalID); err == nil {
		if err := register.Restore(*open); err != nil {
			log.Printf("shift restore failed: %v", err)
		} else {
			log.Printf("shift: restored open shift %s", open.ID)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("shift lookup failed: %v", err)
	}

	var printer sale.Printer
	if cfg.PrinterAddr != "" {
		dispatcher := receipt.NewDispatcher(receipt.NewHTTPPort(cfg.PrinterAddr, cfg.PrinterPort), 32, 3, 2*time.Second)
		closers = append(closers, dispatcher.Close)
		printer = dispatcher
		log.Printf("printer: http bridge at %s:%d", cfg.PrinterAddr, cfg.PrinterPort)
	} else {
		log.Println("printer: disabled")
	}

	processor := sale.New(repo, ledger, register, receipts, printer, sale.Config{
		TerminalID:      cfg.TerminalID,
		VatRatePercent:  cfg.VatRatePercent,
		PointValueCents: cfg.PointValueCents,
		ManagerPIN:      cfg.ManagerPIN,
		Store: domain.StoreProfile{
			Name:    cfg.StoreName,
			Address: cfg.StoreAddress,
			Phone:   cfg.StorePhone,
			TaxID:   cfg.StoreTaxID,
			Footer:  cfg.StoreFooter,
		},
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(processor, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 4 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 4 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"1234": true, "4321": true, "0000": true, "1111": true,
		"123456": true, "654321": true, "000000": true, "111111": true,
		"222222": true, "333333": true, "444444": true, "555555": true,
		"666666": true, "777777": true, "888888": true, "999999": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
