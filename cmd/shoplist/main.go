package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/shoplist/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	user := flag.String("user", "", "sign in with this user id (memory and redis backends)")
	idToken := flag.String("id-token", "", "sign in with a Firebase ID token (firestore backend)")
	joinCode := flag.String("join", "", "join a shared list with a share code")
	exportPath := flag.String("export", "", "write the catalog to this JSON file and exit")
	importPath := flag.String("import", "", "merge products from this JSON file and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		User:       *user,
		IDToken:    *idToken,
		JoinCode:   *joinCode,
		ExportPath: *exportPath,
		ImportPath: *importPath,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "shoplist: %v\n", err)
		return 1
	}
	return 0
}
