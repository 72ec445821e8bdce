// Package auth provides the authentication and authorization gate for
// StockFlow.
//
// Authentication runs as HTTP middleware ([Gate]) ahead of routing. An
// [Authenticator] examines the request and returns one of three outcomes:
// Yes (a [Principal] was established), No (credentials were presented but
// are invalid), or Abstain (no credentials). The gate never rejects a
// request itself; it only records the principal, or the reason verification
// failed, in the request context.
//
// Authorization runs next ([Authorize]). A [Policy] is an ordered table of
// [Rule] values mapping route patterns to a [Requirement] (Public,
// RequiresRole, or RequiresAuth). [Evaluate] is a pure function over the
// table, the request method and path, and the principal. Missing principals
// on protected routes are answered with 401; principals with the wrong role
// get 403.
//
// [Service] implements sign-in and sign-up on top of a [CredentialStore],
// a [PasswordHasher], and a [TokenIssuer].
package auth
