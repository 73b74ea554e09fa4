package config

import "docent/internal/textutil"

const (
	defaultConfigPath     = "~/.config/docent/config.toml"
	projectConfigName     = "docent.toml"
	defaultDataDir        = "~/.local/share/docent"
	defaultLogDir         = "~/.local/share/docent/logs"
	defaultBind           = "127.0.0.1:8787"
	defaultLLMBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel       = "google/gemini-2.5-flash"
	defaultLLMReferer     = "https://github.com/docent-museum/docent"
	defaultLLMTitle       = "Docent Artifact Identifier"
	defaultLLMTimeout     = 60
	defaultMatchThreshold = 0.82
	defaultNotifyTimeout  = 10
	defaultNotifyCooldown = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

const apiTokenEnvVar = "DOCENT_API_TOKEN"

// apiKeyEnvVars are consulted in order when llm.api_key is empty.
var apiKeyEnvVars = []string{"DOCENT_LLM_API_KEY", "OPENROUTER_API_KEY", "LOVABLE_API_KEY"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind: defaultBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Registry: Registry{
			SampleFallback: true,
		},
		Matching: Matching{
			Threshold: defaultMatchThreshold,
			Stopwords: append([]string(nil), textutil.DefaultStopwords...),
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
			CooldownMinutes:       defaultNotifyCooldown,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
