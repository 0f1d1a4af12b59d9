package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsOrderSizeInversion(t *testing.T) {
	cfg := &Config{
		EdgeThreshold:    0.05,
		MaxKellyFraction: 0.05,
		MinOrderSizeUSD:  10,
		MaxOrderSizeUSD:  5,
		MaxDailyLossUSD:  100,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroKellyFraction(t *testing.T) {
	cfg := &Config{
		EdgeThreshold:    0.05,
		MaxKellyFraction: 0,
		MinOrderSizeUSD:  1,
		MaxOrderSizeUSD:  5,
		MaxDailyLossUSD:  100,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := &Config{
		EdgeThreshold:    0.05,
		MaxKellyFraction: 0.05,
		MinOrderSizeUSD:  1,
		MaxOrderSizeUSD:  25,
		MaxDailyLossUSD:  100,
	}
	assert.NoError(t, cfg.Validate())
}

func TestHasTelegramRequiresBothFields(t *testing.T) {
	cfg := &Config{TelegramBotToken: "token"}
	assert.False(t, cfg.HasTelegram())

	cfg.TelegramChatID = "chat"
	assert.True(t, cfg.HasTelegram())
}

func TestUseProxyWallet(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.UseProxyWallet())

	cfg.ProxyWalletAddress = "0xabc"
	assert.True(t, cfg.UseProxyWallet())
}
