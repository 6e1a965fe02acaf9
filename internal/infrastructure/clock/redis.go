package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey clave donde se guarda el último instante emitido.
const DefaultRedisKey = "liquid-ledger:clock"

// tick toma TIME del servidor Redis y lo fuerza a ser mayor que el último emitido.
// Segundos y microsegundos se guardan por separado para no perder precisión en los números de Lua.
var tick = redis.NewScript(`
local t = redis.call('TIME')
local s = tonumber(t[1])
local us = tonumber(t[2])
local last = redis.call('HMGET', KEYS[1], 's', 'us')
local ls = tonumber(last[1] or '0')
local lus = tonumber(last[2] or '0')
if s < ls or (s == ls and us <= lus) then
  s = ls
  us = lus + 1
  if us >= 1000000 then
    s = s + 1
    us = 0
  end
end
redis.call('HSET', KEYS[1], 's', tostring(s), 'us', tostring(us))
return {s, us}
`)

// Redis reloj compartido entre procesos: todos los escritores toman el tiempo del mismo servidor.
type Redis struct {
	client redis.Scripter
	key    string
}

// NewRedis crea el reloj. key vacía usa DefaultRedisKey.
func NewRedis(client redis.Scripter, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// Now devuelve el siguiente instante del reloj compartido.
func (c *Redis) Now(ctx context.Context) (time.Time, error) {
	parts, err := tick.Run(ctx, c.client, []string{c.key}).Int64Slice()
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: redis tick: %w", err)
	}
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("clock: redis tick: respuesta inesperada %v", parts)
	}
	return time.Unix(parts[0], parts[1]*int64(time.Microsecond)).UTC(), nil
}

// NewRedisClient crea el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clock: redis ping: %w", err)
	}
	return client, nil
}
