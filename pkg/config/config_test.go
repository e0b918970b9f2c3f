package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "amqp", cfg.Bus.Driver)
	assert.Equal(t, "inventory-events", cfg.Bus.Exchange)
	assert.Equal(t, 10*time.Second, cfg.Bus.ReconnectDelay, "el backoff de reconexión por defecto es 10s")
	assert.Equal(t, 5*time.Minute, cfg.Executor.CredentialTTL)
	assert.Equal(t, 5*time.Second, cfg.Identity.RefreshCooldown)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Bus.KafkaBrokers)
	assert.True(t, cfg.DB.AutoMigrate)
}

func TestFromViper_DesactivaMigraciones(t *testing.T) {
	v := viper.New()
	v.Set("DB_AUTO_MIGRATE", "false")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.False(t, cfg.DB.AutoMigrate)
}

func TestFromViper_LeeDuracionesYListas(t *testing.T) {
	v := viper.New()
	v.Set("BUS_RECONNECT_DELAY", "3")
	v.Set("IDENTITY_REFRESH_COOLDOWN", "750ms")
	v.Set("BUS_KAFKA_BROKERS", "k1:9092, k2:9092")
	v.Set("BUS_DRIVER", "kafka")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Bus.ReconnectDelay)
	assert.Equal(t, 750*time.Millisecond, cfg.Identity.RefreshCooldown)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Bus.KafkaBrokers)
}

func TestFromViper_RechazaCredencialDeMasDeCincoMinutos(t *testing.T) {
	v := viper.New()
	v.Set("EXECUTOR_CREDENTIAL_TTL", "10m")

	_, err := fromViper(v)
	assert.Error(t, err, "la credencial de sistema no puede vivir más de 5 minutos")
}

func TestFromViper_RechazaDriverDesconocido(t *testing.T) {
	v := viper.New()
	v.Set("BUS_DRIVER", "nats")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/inv?sslmode=disable", c.DSN())
}
