// Package config loads the shoplist client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/shoplist/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Backend: memory (in-process store, nothing leaves the machine)
//   - Cache: ~/.local/share/shoplist/cache.db
//   - Log file: ~/.local/share/shoplist/shoplist.log
//   - Collections: users, shareCodes
//   - Read and write timeouts: 10 seconds
//
// # TOML Format
//
//	backend = "firestore"            # memory | firestore | redis
//	project_id = "my-shop"
//	credentials_file = "~/keys/shop.json"
//	users_collection = "users"
//	share_codes_collection = "shareCodes"
//	redis_addr = "127.0.0.1:6379"
//	redis_password = ""
//	redis_db = 0
//	cache_path = "~/.local/share/shoplist/cache.db"
//	log_file = "~/.local/share/shoplist/shoplist.log"
//	log_level = "info"
//	write_timeout_seconds = 10
//	read_timeout_seconds = 10
//
// Paths beginning with ~ are expanded to the user's home directory and made
// absolute. Validation is limited to the backend name and the project id the
// firestore backend requires; connectivity is checked when the app starts.
package config
