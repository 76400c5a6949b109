package runtime

import "time"

// ClientApplication describes the mobile application that invoked the
// function, as reported by the AWS Mobile SDK.
type ClientApplication struct {
	InstallationID string `json:"installationId"`
	AppTitle       string `json:"appTitle"`
	AppVersionName string `json:"appVersionName"`
	AppVersionCode string `json:"appVersionCode"`
	AppPackageName string `json:"appPackageName"`
}

// ClientContext carries the mobile client information attached to an
// invocation. It is only present when the function is invoked through an
// AWS mobile SDK.
type ClientContext struct {
	Client      ClientApplication `json:"client"`
	Custom      map[string]string `json:"custom"`
	Environment map[string]string `json:"environment"`
}

// CognitoIdentity identifies the Cognito credentials that invoked the
// function. Only present when the invocation used credentials issued by
// an Amazon Cognito identity pool.
type CognitoIdentity struct {
	IdentityID     string `json:"identity_id"`
	IdentityPoolID string `json:"identity_pool_id"`
}

// EventContext is the per-invocation metadata decoded from the headers of
// a successful poll. A fresh value is produced for every event and is not
// modified afterwards; callers hold it for the duration of one invocation
// and discard it once the response or error has been posted.
type EventContext struct {
	// RequestID uniquely identifies the invocation. It is the path
	// segment used when posting the response or error for this event.
	RequestID string

	// InvokedFunctionARN is the full ARN of the function being invoked.
	InvokedFunctionARN string

	// TraceID is the X-Ray trace id generated for this invocation.
	TraceID string

	// DeadlineMS is the absolute wall-clock execution deadline in
	// milliseconds since the Unix epoch. It is a point in time, not a
	// remaining duration.
	DeadlineMS int64

	// ClientContext is non-nil only for mobile-SDK-originated events.
	ClientContext *ClientContext

	// Identity is non-nil only when the invocation carried Cognito
	// identity information.
	Identity *CognitoIdentity
}

// Deadline returns the execution deadline as a time.Time.
func (c *EventContext) Deadline() time.Time {
	return time.UnixMilli(c.DeadlineMS)
}
