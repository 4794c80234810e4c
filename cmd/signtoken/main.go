// Command signtoken mints credentials for manual testing: a channel token,
// or an X-Signature value for a webhook request.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/boyl/lighteddjango/internal/signing"
)

func main() {
	channel := flag.String("channel", "", "channel to issue a token for")
	method := flag.String("method", "", "HTTP method of a webhook request to sign")
	url := flag.String("url", "", "full URL of the webhook request")
	body := flag.String("body", "", "webhook request body")
	flag.Parse()

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("SECRET_KEY is required")
	}

	signer := signing.NewSigner(secret, clockwork.NewRealClock())

	switch {
	case *channel != "":
		fmt.Println(signing.NewChannelTokens(signer).Issue(*channel))
	case *method != "" && *url != "":
		verifier := signing.NewWebhookVerifier(signer)
		fmt.Println(verifier.Sign(*method, *url, signing.BodyHash([]byte(*body))))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
