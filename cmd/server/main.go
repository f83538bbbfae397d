package main

import "github.com/adanyl0v/go-todo/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()
	app.MustMigratePostgres()

	app.MustStartRealtime()
	app.StartSessionCleanup()

	app.MustListenAndServeHTTP()
}
