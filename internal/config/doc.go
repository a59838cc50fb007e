/*
Package config resolves settings for the quiz client and the dev server.

Each setting comes from, in order: a command-line flag, an environment
variable, then a built-in default. LoadDotEnv can be called first to pull
variables from a .env file; it never overrides variables that are already
set.

# Client

	-server   QUIZ_API_URL           API base URL (http://localhost:8000)
	-timeout  QUIZ_HTTP_TIMEOUT      per-request timeout (10s)
	-db       QUIZ_STATE_DB          login and receipt store (~/.quiz-client.db)
	-warn     QUIZ_WARNING_FRACTION  low-time warning share, 0 disables (0.1)

# Dev server

	-addr       QUIZ_DEV_ADDR     listen address (:8000)
	-db         QUIZ_DEV_DB       sqlite file (quiz-dev.db)
	-secret     QUIZ_JWT_SECRET   HS256 signing secret
	-token-ttl  QUIZ_TOKEN_TTL    access token lifetime (24h)
	-seed       QUIZ_DEV_SEED     JSON fixture loaded at startup

glog flags such as -v and -logtostderr are accepted by both parsers.
*/
package config
