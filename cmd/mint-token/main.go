// Command mint-token signs a development bearer token for a profile id,
// using JWT_SECRET from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/visit-management/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "profile id to put in the sub claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *sub == "" {
		flag.Usage()
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *sub, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok.Token)
}
