package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/companion",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Gateway: GatewayConfig{
			BaseURL: DefaultGatewayURL,
			Timeout: DefaultTimeout.String(),
		},
		Conversations: ConversationsConfig{
			CreatePlacement: DefaultPlacement,
		},
		RememberLogin: false,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Companion System Configuration
# Location: ~/.config/companion/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the user config, credentials and debug log are stored
data_directory = "~/.local/share/companion"
`
}

func GenerateUserConfigTemplate() string {
	return `# Companion User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Keep the access token in <data_directory>/credentials.toml between runs
remember_login = false

[gateway]
# Base URL of the chat gateway API
base_url = "http://localhost:8000/api"

# Request timeout (Go duration, "0s" disables it)
timeout = "1m0s"

[conversations]
# Where new conversations are inserted in the list: "prepend" or "append"
create_placement = "prepend"
`
}
