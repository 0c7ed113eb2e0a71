package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr   string `env:"RUN_ADDRESS"`
	LogLevel     string `env:"LOG_LEVEL"`
	DatabaseURI  string `env:"DATABASE_URI"`
	JWTSecretKey string `env:"JWT_SECRET_KEY"`

	AdminLogin    string `env:"ADMIN_LOGIN"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	GatewayURI          string        `env:"PAYMENT_GATEWAY_ADDRESS"`
	GatewayPollInterval time.Duration `env:"PAYMENT_POLL_INTERVAL"`
	BonusPollInterval   time.Duration `env:"BONUS_POLL_INTERVAL"`

	SignupBonus         float64 `env:"SIGNUP_BONUS"`
	MinWithdrawal       float64 `env:"MINIMUM_WITHDRAWAL"`
	AdRewardMin         int     `env:"AD_REWARD_MIN"`
	AdRewardMax         int     `env:"AD_REWARD_MAX"`
	BonusTierStep       float64 `env:"BONUS_TIER_STEP"`
	BonusTierRate       float64 `env:"BONUS_TIER_RATE"`
	DepositTaxRate      float64 `env:"DEPOSIT_TAX_RATE"`
	DepositTaxExemption float64 `env:"DEPOSIT_TAX_EXEMPTION"`
}

func NewConfig() (Config, error) {
	// Optional .env for local runs; environment variables win.
	_ = godotenv.Load()

	cfg := Config{}

	flag.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database connection string [env:DATABASE_URI]")
	flag.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	flag.StringVar(&cfg.AdminLogin, "admin-login", "admin", "admin panel login [env:ADMIN_LOGIN]")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "admin panel password [env:ADMIN_PASSWORD]")
	flag.StringVar(&cfg.GatewayURI, "r", "http://localhost:8081", "payment gateway URI [env:PAYMENT_GATEWAY_ADDRESS]")
	flag.DurationVar(&cfg.GatewayPollInterval, "i", 10*time.Second, "payment gateway poll interval [env:PAYMENT_POLL_INTERVAL]")
	flag.DurationVar(&cfg.BonusPollInterval, "b", 1*time.Hour, "daily bonus poll interval [env:BONUS_POLL_INTERVAL]")
	flag.Float64Var(&cfg.SignupBonus, "signup-bonus", 100, "signup bonus credited on registration activation [env:SIGNUP_BONUS]")
	flag.Float64Var(&cfg.MinWithdrawal, "min-withdrawal", 50000, "minimum withdrawal amount [env:MINIMUM_WITHDRAWAL]")
	flag.IntVar(&cfg.AdRewardMin, "ad-reward-min", 50, "ad view reward lower bound [env:AD_REWARD_MIN]")
	flag.IntVar(&cfg.AdRewardMax, "ad-reward-max", 100, "ad view reward upper bound [env:AD_REWARD_MAX]")
	flag.Float64Var(&cfg.BonusTierStep, "bonus-tier-step", 10000, "balance step per daily bonus tier [env:BONUS_TIER_STEP]")
	flag.Float64Var(&cfg.BonusTierRate, "bonus-tier-rate", 0.05, "daily bonus rate per tier [env:BONUS_TIER_RATE]")
	flag.Float64Var(&cfg.DepositTaxRate, "deposit-tax-rate", 0.03, "deposit tax rate [env:DEPOSIT_TAX_RATE]")
	flag.Float64Var(&cfg.DepositTaxExemption, "deposit-tax-exemption", 5000, "tax-free amount of a first deposit [env:DEPOSIT_TAX_EXEMPTION]")
	flag.Parse()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
