package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"examseat/pkg/client"
)

const DefaultHealthCheckTimeout = 30 * time.Second

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	JWTSecret    string
}

// NewTestEnv reads the integration environment. The suite only runs when
// RUN_INTEGRATION_TESTS is set, so unit test runs never need a live stack.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("set RUN_INTEGRATION_TESTS to run integration tests")
	}

	serverPort := getEnv("TEST_SERVER_PORT", "8080")

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort)),
		JWTSecret:    getEnv("TEST_JWT_SECRET", "integration-test-secret"),
	}
}

func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.ReservationClient) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	api := client.NewReservationClient(e.ServerURL)
	if err := api.WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("service not healthy: %v", err)
	}

	return mongo, api
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
