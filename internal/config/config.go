package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	TerminalID            string
	AuthSecret            string
	AccessTokenTTLMinutes int
	ManagerPIN            string

	VatRatePercent  int
	PointValueCents int64

	PrinterAddr string
	PrinterPort int

	StoreName    string
	StoreAddress string
	StorePhone   string
	StoreTaxID   string
	StoreFooter  string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	vatRate, err := strconv.Atoi(getEnv("VAT_RATE_PERCENT", "7"))
	if err != nil || vatRate < 0 {
		vatRate = 7
	}
	pointValue, err := strconv.ParseInt(getEnv("POINT_VALUE_CENTS", "100"), 10, 64)
	if err != nil || pointValue < 1 {
		pointValue = 100
	}
	printerPort, err := strconv.Atoi(getEnv("PRINTER_PORT", "9100"))
	if err != nil || printerPort < 1 {
		printerPort = 9100
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		TerminalID:            getEnv("TERMINAL_ID", "main-terminal"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		ManagerPIN:            strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		VatRatePercent:        vatRate,
		PointValueCents:       pointValue,
		PrinterAddr:           os.Getenv("PRINTER_ADDR"),
		PrinterPort:           printerPort,
		StoreName:             getEnv("STORE_NAME", "Ncare Pharmacy"),
		StoreAddress:          os.Getenv("STORE_ADDRESS"),
		StorePhone:            os.Getenv("STORE_PHONE"),
		StoreTaxID:            os.Getenv("STORE_TAX_ID"),
		StoreFooter:           getEnv("STORE_FOOTER", "Thank you, get well soon"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
