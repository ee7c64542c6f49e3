// Package paddle implements the card-based gateway adapter on top of the
// official Paddle SDK. Webhook signatures are verified by the SDK's verifier;
// user attribution travels through transaction custom data.
package paddle
