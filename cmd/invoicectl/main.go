package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local runs; the process environment wins.
	_ = godotenv.Load()

	Execute()
}
