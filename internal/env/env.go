package env

import (
	"os"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	AgentSecretKey   = "AGENT_SECRET"
	RedisURL         = "REDIS_URL"
	RedisPass        = "REDIS_PASS"
	DefaultBranchID  = "DEFAULT_BRANCH_ID"
	WidgetOrigin     = "WIDGET_ORIGIN"
	AgentOrigin      = "AGENT_ORIGIN"
)

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
