// Package accounts provides the account authentication and lifecycle
// service: registration with email verification, credential login with
// brute force lockout, JWT session issuance, and a cached profile read
// path.
//
// Authentication:
//   - Passwords are hashed with Argon2id through a bounded worker pool so
//     CPU-heavy hashing never runs inline on request goroutines.
//   - Login failures from a missing account and a wrong password collapse
//     into the same generic error. Repeated failures within the lockout
//     window trigger a temporary account lock that is enforced before the
//     password is ever compared.
//   - Successful logins create a server side session record and a pair of
//     RS256 JWTs (access + refresh) sharing the session id. Logout deletes
//     the session record, which invalidates every refresh token minted for
//     that session.
//
// User lifecycle:
//   - Users carry a UserStatus field persisted via Bun. Accounts start
//     pending, activate on email verification, and can be deactivated and
//     reinstated by admins.
//   - UserStateMachine centralizes the transition graph. Invoke Transition
//     with ActorRef metadata whenever an admin moves an account.
//
// Events:
//   - EventPublisher emits user.registered and user.logged_in events.
//     Publishing is best effort: failures are logged and never roll back
//     the operation that produced them. KafkaPublisher ships them to
//     Kafka keyed by user id, NoopPublisher drops them.
package accounts
