/*
main.go - Application entry point

PURPOSE:
  The ledger binary runs the collection ledger service and drives edit
  sessions against it from the command line.

COMMANDS:
  serve     Start the HTTP service
  seed      Load demo debts and products into the database
  show      Print a debt's periods, newest first
  collect   Open a session, apply edits, optionally submit
  export    Write a debt statement to XLSX

CONFIGURATION:
  .env is loaded first, then --config (YAML/TOML/JSON), then LEDGER_*
  environment variables. See config/config.go for keys.

EXAMPLES:
  # Run the service on a file database
  ledger serve

  # Add two scans of a barcode to today's period and submit
  ledger collect debt-lan --add 8930001 --add 8930001 --submit

SEE ALSO:
  - api/server.go: Router configuration
  - session/session.go: Edit session
*/
package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	Execute()
}
