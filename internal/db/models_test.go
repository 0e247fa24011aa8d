package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPAddr(t *testing.T) {
	t.Run("scan from string", func(t *testing.T) {
		var ip IPAddr
		require.NoError(t, ip.Scan("10.0.0.5"))
		assert.Equal(t, "10.0.0.5", ip.String())
	})

	t.Run("scan from bytes", func(t *testing.T) {
		var ip IPAddr
		require.NoError(t, ip.Scan([]byte("192.168.1.40")))
		assert.Equal(t, "192.168.1.40", ip.String())
	})

	t.Run("scan nil leaves zero value", func(t *testing.T) {
		var ip IPAddr
		require.NoError(t, ip.Scan(nil))
		assert.Equal(t, "", ip.String())
	})

	t.Run("scan rejects garbage", func(t *testing.T) {
		var ip IPAddr
		assert.Error(t, ip.Scan("not-an-ip"))
		assert.Error(t, ip.Scan(42))
	})

	t.Run("value round trip", func(t *testing.T) {
		ip, err := ParseIPAddr("10.0.0.5")
		require.NoError(t, err)

		v, err := ip.Value()
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5", v)
	})

	t.Run("zero value yields nil", func(t *testing.T) {
		var ip IPAddr
		v, err := ip.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("parse rejects garbage", func(t *testing.T) {
		_, err := ParseIPAddr("10.0.0.")
		assert.Error(t, err)
	})
}

func TestMACAddr(t *testing.T) {
	t.Run("scan from string", func(t *testing.T) {
		var mac MACAddr
		require.NoError(t, mac.Scan("aa:bb:cc:dd:ee:ff"))
		assert.Equal(t, "aa:bb:cc:dd:ee:ff", mac.String())
	})

	t.Run("scan rejects garbage", func(t *testing.T) {
		var mac MACAddr
		assert.Error(t, mac.Scan("zz:zz"))
		assert.Error(t, mac.Scan(42))
	})

	t.Run("value round trip", func(t *testing.T) {
		var mac MACAddr
		require.NoError(t, mac.Scan("aa:bb:cc:dd:ee:ff"))

		v, err := mac.Value()
		require.NoError(t, err)
		assert.Equal(t, "aa:bb:cc:dd:ee:ff", v)
	})

	t.Run("zero value yields nil", func(t *testing.T) {
		var mac MACAddr
		v, err := mac.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}
