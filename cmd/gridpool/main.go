package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/redis/go-redis/v9"

	"github.com/gridpool/gridpool/adapters/events"
	"github.com/gridpool/gridpool/adapters/store"
	"github.com/gridpool/gridpool/adapters/tokenizer"
	"github.com/gridpool/gridpool/identity"
	"github.com/gridpool/gridpool/service"
	"github.com/gridpool/gridpool/transport/http"
)

func main() {
	// Server identity key: load from env, or generate an ephemeral one
	serverKey, err := loadServerKey()
	if err != nil {
		log.Fatalf("Failed to load server key: %v", err)
	}
	serverPubKey := hex.EncodeToString(schnorr.SerializePubKey(serverKey.PubKey()))
	log.Printf("Server identity: %s", serverPubKey)

	// Session-token signing key (you would normally load this from
	// somewhere secure)
	jwtKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate JWT signing key: %v", err)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)

	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}
	eventPub := events.NewWatermillPublisher(publisher)

	challenges := store.NewRedisChallengeStore(redisClient)
	providers := store.NewRedisProviderStore(redisClient)
	records := store.NewRedisAuthRecordStore(redisClient)
	sessions := store.NewRedisSessionStore(redisClient)

	issuer, err := service.NewIssuer(challenges, 5*time.Minute)
	if err != nil {
		log.Fatalf("Failed to create challenge issuer: %v", err)
	}

	authService := service.NewAuthService(
		issuer,
		identity.NewVerifier(),
		challenges,
		records,
		sessions,
		tokenizer.NewJWTTokenizer(jwtKey),
		eventPub,
		serverPubKey,
	)
	registry := service.NewRegistry(providers, eventPub)
	discovery := service.NewDiscovery(registry)

	router := http.SetupRouter(authService, registry, discovery)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":9000"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadServerKey reads a 32-byte hex secp256k1 secret from SERVER_KEY, or
// generates a fresh key when unset.
func loadServerKey() (*btcec.PrivateKey, error) {
	raw := os.Getenv("SERVER_KEY")
	if raw == "" {
		return btcec.NewPrivateKey()
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}
