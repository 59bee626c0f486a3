/*
Package authsdk provides a client SDK for the tokenward session service.

# Overview

The package wraps the /v1/session endpoints. SDKClient performs the
unauthenticated calls (login, refresh, logout, health) and Session keeps a
token pair, refreshing the access token transparently when it is about to
expire.

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "rick", "wubba-lubba", false)
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)
	fmt.Println("logged in as", me.Email)

	// Revoke both tokens when done.
	err = session.Logout(ctx)

# Refresh rotation

Every refresh returns a new pair and consumes the refresh token that was
presented. Presenting a consumed refresh token again is treated as theft:
the server revokes every token descended from it and answers invalid_grant.
A Session therefore always replaces both tokens after a refresh and never
retries with the old refresh token.

# Error Handling

Server errors are returned as *OAuth2Error and match the predefined values
with errors.Is:

	_, err := client.Login(ctx, "rick", "wrong", false)
	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// bad credentials
	}

ErrTemporarilyUnavailable means the server could not reach its revocation
store. The request may be retried after RetryAfter.

# Thread Safety

Sessions are safe for concurrent use. Concurrent callers that find the
access token expired share a single refresh.
*/
package authsdk
