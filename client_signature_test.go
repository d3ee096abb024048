package jobs_test

import (
	"strings"
	"testing"

	jobs "github.com/goliatone/go-jobs"
	"github.com/stretchr/testify/assert"
)

func TestSignatureBuilder_Determinism(t *testing.T) {
	builder := jobs.NewClientSignatureBuilder()

	meta := jobs.RequestMetadata{
		UserAgent:      "agent/1.0",
		AcceptLanguage: "fr-FR",
		Platform:       "Linux",
		RemoteIP:       "203.0.113.7",
	}

	first := builder.BuildSignature(meta)
	second := builder.BuildSignature(meta)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSignatureBuilder_AttributeSensitivity(t *testing.T) {
	builder := jobs.NewClientSignatureBuilder()

	base := jobs.RequestMetadata{
		UserAgent:      "agent/1.0",
		AcceptLanguage: "fr-FR",
		Platform:       "Linux",
		RemoteIP:       "203.0.113.7",
	}
	baseline := builder.BuildSignature(base)

	t.Run("user agent changes the signature", func(t *testing.T) {
		meta := base
		meta.UserAgent = "agent/2.0"
		assert.NotEqual(t, baseline, builder.BuildSignature(meta))
	})

	t.Run("language changes the signature", func(t *testing.T) {
		meta := base
		meta.AcceptLanguage = "en-US"
		assert.NotEqual(t, baseline, builder.BuildSignature(meta))
	})

	t.Run("platform changes the signature", func(t *testing.T) {
		meta := base
		meta.Platform = "Windows"
		assert.NotEqual(t, baseline, builder.BuildSignature(meta))
	})
}

func TestSignatureBuilder_NetworkMasking(t *testing.T) {
	builder := jobs.NewClientSignatureBuilder()

	base := jobs.RequestMetadata{
		UserAgent:      "agent/1.0",
		AcceptLanguage: "fr-FR",
		Platform:       "Linux",
		RemoteIP:       "203.0.113.7",
	}
	baseline := builder.BuildSignature(base)

	t.Run("rotation inside the same v4 network keeps the signature", func(t *testing.T) {
		meta := base
		meta.RemoteIP = "203.0.113.200"
		assert.Equal(t, baseline, builder.BuildSignature(meta))
	})

	t.Run("a different network changes the signature", func(t *testing.T) {
		meta := base
		meta.RemoteIP = "198.51.100.7"
		assert.NotEqual(t, baseline, builder.BuildSignature(meta))
	})

	t.Run("client-most forwarded hop wins over the remote address", func(t *testing.T) {
		direct := base
		direct.RemoteIP = "10.0.0.1"
		direct.ForwardedFor = "203.0.113.7, 10.0.0.1"

		assert.Equal(t, baseline, builder.BuildSignature(direct))
	})

	t.Run("v6 rotation inside the /48 keeps the signature", func(t *testing.T) {
		a := base
		a.RemoteIP = "2001:db8:1:2::1"
		b := base
		b.RemoteIP = "2001:db8:1:99::1"

		assert.Equal(t, builder.BuildSignature(a), builder.BuildSignature(b))
	})
}

func TestURLSafeKey(t *testing.T) {
	builder := jobs.NewClientSignatureBuilder()

	key := jobs.URLSafeKey(builder.Hash("some|raw|input"))

	assert.NotEmpty(t, key)
	assert.False(t, strings.ContainsAny(key, "+/="))
}
