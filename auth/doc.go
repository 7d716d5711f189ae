// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package auth implements the one-time-password login flow and reads access
token claims.

# Login

Logging in is two calls against the identity API:

	phone, err := auth.RequestCode(ctx, client, "+55 11 99999-8888")
	pair, err := auth.VerifyCode(ctx, client, manager, phone, "123456")

RequestCode normalizes the number to E.164 and asks for an SMS code.
VerifyCode checks the code is 6 digits, exchanges it for a token pair and
hands the pair to session.Manager.Login, which persists all three keys.

# Claims

Access tokens are JWTs signed by the identity service. The client holds no
key, so ParseClaims decodes the payload without verifying it:

	claims, err := auth.ParseClaims(pair.AccessToken)
	fmt.Println(claims.Subject, claims.ExpiresAt)

Use it for display only (whoami). Authorization decisions stay with the
server, which answers 401 to expired tokens.
*/
package auth
