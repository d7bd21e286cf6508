// server/cmd/hash-api-key/main.go

// Command hash-api-key prints the bcrypt hash to store in PHARMACY_API_KEY.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"mediradar-api-server/internal/auth"

	flag "github.com/spf13/pflag"
)

func main() {
	key := flag.StringP("key", "k", "", "plaintext API key (read from stdin when empty)")
	flag.Parse()

	if *key == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Could not read key from stdin: %v", err)
		}
		*key = strings.TrimSpace(line)
	}
	if *key == "" {
		log.Fatal("API key is empty")
	}

	hash, err := auth.HashAPIKey(*key)
	if err != nil {
		log.Fatalf("Could not hash key: %v", err)
	}
	fmt.Println(hash)
}
