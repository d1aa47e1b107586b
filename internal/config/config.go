package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server Configuration
	Port string

	// Database Configuration
	DatabaseURL string

	// Ledger Configuration
	OwnerAddress       string
	InsuranceContract  string
	EmergencyContract  string
	GenesisAccounts    []string
	GenesisBalance     string
	InsurancePoolSeed  string
	EmergencyFundSeed  string
	InitialInventory   uint64
	SeedInitialFunding bool
}

func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Ledger
		OwnerAddress:       getEnv("OWNER_ADDRESS", "0x00000000000000000000000000000000000A11CE"),
		InsuranceContract:  getEnv("INSURANCE_CONTRACT_ADDRESS", "0x0000000000000000000000000000000000001001"),
		EmergencyContract:  getEnv("EMERGENCY_CONTRACT_ADDRESS", "0x0000000000000000000000000000000000001002"),
		GenesisAccounts:    getSliceEnv("GENESIS_ACCOUNTS", nil),
		GenesisBalance:     getEnv("GENESIS_BALANCE", "1000000000000000000000"),
		InsurancePoolSeed:  getEnv("INSURANCE_POOL_SEED", "0"),
		EmergencyFundSeed:  getEnv("EMERGENCY_FUND_SEED", "0"),
		InitialInventory:   getUintEnv("INITIAL_INVENTORY", 0),
		SeedInitialFunding: getBoolEnv("SEED_INITIAL_FUNDING", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return boolVal
	}
	return fallback
}

func getUintEnv(key string, fallback uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		uintVal, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fallback
		}
		return uintVal
	}
	return fallback
}

func getSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		// Support comma-separated values: "0xabc...,0xdef..."
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
