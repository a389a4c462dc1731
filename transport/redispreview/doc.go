// Package redispreview carries previews over Redis pub/sub. Redis does not
// persist pub/sub messages, which matches the preview channel's best-effort
// contract; each board uses its own channel.
package redispreview
