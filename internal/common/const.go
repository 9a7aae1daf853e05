package common

import "time"

const (
	// DefaultTranslationID is the translation used when a request names none
	// or names one missing from the catalog.
	DefaultTranslationID = "ESV"

	MaxTranslationHistory = 10
	MaxRecentReadings     = 5

	SessionCookieName = "berean_session"

	DefaultTranslationCacheTTL = 24 * time.Hour
	DefaultSessionTTL          = 30 * 24 * time.Hour

	ReflectionPrompt = "You are a thoughtful Bible study companion. For the passages the reader has just finished, " +
		"ask one short, open reflection question grounded in the text, or respond briefly to the reader's own reflection. " +
		"Do not preach, do not quote long passages, and keep answers under 120 words."
	MaxReflectionRunes      = 500
	DefaultReflectionsCap   = 10
	ReflectionMemoryWindow  = 10
	DefaultHunyuanModel     = "hunyuan-turbos-latest"
	DefaultHunyuanBaseURL   = "https://api.hunyuan.cloud.tencent.com/v1"
	DefaultHunyuanEndpoint  = "hunyuan.ap-guangzhou.tencentcloudapi.com"
	DefaultReminderStartsAt = "07:00"
)
