package catalog

// Games is the built-in set of deployable templates.
var Games = []Template{
	{
		ID:      "valheim",
		Name:    "Valheim",
		Icon:    "🌲",
		Version: "0.217.38",
		Fields: []Field{
			{Key: "VALHEIM_SERVER_NAME", Label: "Server Name", Default: "YourServerName", Required: true},
			{Key: "VALHEIM_WORLD_NAME", Label: "World Name", Default: "ThisIsTest"},
			{Key: "VALHEIM_SERVER_PASS", Label: "Password", Default: "YourSecretPassword", Secret: true},
			{Key: "VALHEIM_UPDATE_CRON", Label: "Update Cron", Default: "0 6 * * *"},
			{Key: "VALHEIM_BACKUPS_MAX_COUNT", Label: "Max Backups", Default: "5"},
		},
	},
	{ID: "minecraft", Name: "Minecraft", Icon: "⛏️", Version: "1.20.4"},
	{ID: "rust", Name: "Rust", Icon: "☢️", Version: "Latest"},
	{ID: "palworld", Name: "Palworld", Icon: "🥚", Version: "v0.1.4.1"},
}

func Default() *Catalog {
	return New(Games)
}
