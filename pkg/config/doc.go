// Package config provides application configuration management from environment variables.
//
// A .env file in the working directory is loaded first when present, then
// real environment variables take precedence.
//
// Server settings:
//
//	ORGBILLING_HOST="0.0.0.0"
//	ORGBILLING_PORT="8080"
//	ORGBILLING_HEALTH_PORT="9090"
//	ORGBILLING_READ_TIMEOUT="15s"
//	ORGBILLING_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	DATABASE_URL="postgres://localhost/orgbilling?sslmode=disable"
//	REDIS_ADDR="localhost:6379"
//
// Payment gateway settings:
//
//	RAZORPAY_KEY_ID="rzp_test_xxxx"
//	RAZORPAY_KEY_SECRET="..."
//	RAZORPAY_BASE_URL="https://api.razorpay.com/v1"
//
// Identity provider settings:
//
//	OIDC_ISSUER_URL="https://auth.example.com/realms/master"
//
// Upstream forwarding:
//
//	ORG_MGMT_BASEURL="https://orgmgmt.internal:8443"
//
// Feature settings:
//
//	ORG_PROVISIONING_ENABLED="true"
//	SUBSCRIPTION_SWEEP_SCHEDULE=""  # cron expression, empty disables the sweep
package config
