// Command gensecret prints a fresh OAuth2 client id and secret pair.
package main

import (
	"fmt"
	"os"

	"github.com/nkiryanov/deskled/internal/service/oauth2"
)

func main() {
	id, err := oauth2.GenerateToken()
	if err != nil {
		fmt.Printf("error while generating client id: %v", err)
		os.Exit(1)
	}

	secret, err := oauth2.GenerateToken()
	if err != nil {
		fmt.Printf("error while generating client secret: %v", err)
		os.Exit(1)
	}

	fmt.Printf("OAUTH2_CLIENT_ID=%s\nOAUTH2_CLIENT_SECRET=%s\n", id, secret)
}
