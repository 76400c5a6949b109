// Package testutil provides shared testing utilities and fixtures for the
// runtime client and emulator tests.
package testutil

// Common invocation metadata used across test files.
const (
	TestRequestID   = "8476a536-e9f4-11e8-9739-2dfe598c3fcd"
	TestFunctionARN = "arn:aws:lambda:us-east-2:123456789012:function:custom-runtime"
	TestTraceID     = "Root=1-5bef4de7-ad49b0e87f6ef6c87fc2e700;Parent=9a9197af755a6419;Sampled=1"
	TestDeadlineMS  = int64(1542409706888)
)

// ClientContextJSON is a well-formed mobile client context document.
const ClientContextJSON = `{
	"client": {
		"installationId": "3da21174-2e19-46bd-bba2-b11ba9b9b70f",
		"appTitle": "custom-runtime-app",
		"appVersionName": "1.2.0",
		"appVersionCode": "12",
		"appPackageName": "com.example.customruntime"
	},
	"custom": {"tier": "beta"},
	"environment": {"platform": "Android"}
}`

// CognitoIdentityJSON is a well-formed cognito identity document.
const CognitoIdentityJSON = `{
	"identity_id": "us-east-2:f9c4a18a-1ee5-4a4a-8d33-5ca4b0e86b44",
	"identity_pool_id": "us-east-2:4f3a8e62-2a2b-4a33-a8f0-6a78346f0e22"
}`
