package crypt

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/entity"
	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

const (
	masterV1 = "base64:MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	masterV2 = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

var accountSchema = schema.MustNew("Account", "",
	schema.Field{Name: "id", Type: schema.TypeInt},
	schema.Field{Name: "email", Type: schema.TypeString, Encrypted: true},
	schema.Field{Name: "pin", Type: schema.TypeInt, Encrypted: true},
	schema.Field{Name: "note", Type: schema.TypeString, Encrypted: true},
)

func testRing(t *testing.T) *Keyring {
	t.Helper()
	r, err := NewKeyring(1, map[int]string{1: masterV1})
	require.NoError(t, err)
	return r
}

func TestParseMasterKey(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"base64 prefix", masterV1, true},
		{"hex", masterV2, true},
		{"bare base64", strings.TrimPrefix(masterV1, "base64:"), true},
		{"raw 32", "this-is-a-thirty-two-byte-key!!!", true},
		{"empty", "  ", false},
		{"short hex", "abcd", false},
		{"bad base64", "base64:!!!", false},
		{"base64 wrong length", "base64:YWJj", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := ParseMasterKey(tc.input)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, KeySize)
		})
	}
}

func TestGenerateMasterKey(t *testing.T) {
	k, err := GenerateMasterKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(k, "base64:"))

	parsed, err := ParseMasterKey(k)
	require.NoError(t, err)
	assert.Len(t, parsed, KeySize)
}

func TestNewKeyring_Errors(t *testing.T) {
	_, err := NewKeyring(0, map[int]string{1: masterV1})
	assert.Error(t, err)

	_, err = NewKeyring(2, map[int]string{1: masterV1})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = NewKeyring(1, map[int]string{1: "short"})
	assert.Error(t, err)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	r := testRing(t)

	ct, err := r.Seal("hello world")
	require.NoError(t, err)
	assert.NotContains(t, ct, "hello")

	blob, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(blob[:4]))

	pt, err := r.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello world", pt)

	again, err := r.Seal("hello world")
	require.NoError(t, err)
	assert.NotEqual(t, ct, again, "nonce must be random")
}

func TestOpen_Errors(t *testing.T) {
	r := testRing(t)

	_, err := r.Open("%%%")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = r.Open(base64.StdEncoding.EncodeToString([]byte{0, 0}))
	assert.ErrorIs(t, err, ErrMalformed)

	ct, err := r.Seal("secret")
	require.NoError(t, err)
	blob, _ := base64.StdEncoding.DecodeString(ct)
	blob[len(blob)-1] ^= 0xff
	_, err = r.Open(base64.StdEncoding.EncodeToString(blob))
	assert.ErrorIs(t, err, ErrAuth)

	binary.BigEndian.PutUint32(blob[:4], 9)
	_, err = r.Open(base64.StdEncoding.EncodeToString(blob))
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestKeyRotation(t *testing.T) {
	old, err := NewKeyring(1, map[int]string{1: masterV1})
	require.NoError(t, err)
	ct, err := old.Seal("legacy")
	require.NoError(t, err)

	rotated, err := NewKeyring(2, map[int]string{1: masterV1, 2: masterV2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rotated.Versions())
	assert.Equal(t, 2, rotated.Active())

	pt, err := rotated.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "legacy", pt)

	fresh, err := rotated.Seal("new")
	require.NoError(t, err)
	_, err = old.Open(fresh)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec(testRing(t))

	e, _ := entity.New(accountSchema).Set("id", 7)
	e, _ = e.Set("email", "alice@example.com")
	e, _ = e.Set("pin", 1234)

	sealed, err := c.Encrypt(e)
	require.NoError(t, err)

	assert.Equal(t, nulls.New(int64(7)), entity.Value[int64](sealed, "id"), "plain fields untouched")
	email, ok := entity.Value[string](sealed, "email").Take()
	require.True(t, ok)
	assert.NotEqual(t, "alice@example.com", email)
	pin, ok := entity.Value[string](sealed, "pin").Take()
	require.True(t, ok)
	assert.NotEmpty(t, pin)
	assert.True(t, sealed.Get("note").IsUndefined(), "Undefined passes through")

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.True(t, e.Equal(opened), "decrypt(encrypt(v)) == v")

	assert.Equal(t, "alice@example.com", c.String(sealed, "email"))
	assert.Equal(t, int64(1234), c.Int(sealed, "pin"))
}

func TestCodec_PassThrough(t *testing.T) {
	c := NewCodec(testRing(t))

	e, _ := entity.New(accountSchema).Set("email", "")
	e, _ = e.Set("pin", 0)
	e, _ = e.SetNull("note")

	sealed, err := c.Encrypt(e)
	require.NoError(t, err)
	assert.True(t, e.Equal(sealed))

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.True(t, e.Equal(opened))

	undefined, err := c.Encrypt(entity.New(accountSchema))
	require.NoError(t, err)
	assert.True(t, undefined.IsEmpty())
}

func TestCodec_DecryptAllOrNothing(t *testing.T) {
	c := NewCodec(testRing(t))

	e, _ := entity.New(accountSchema).Set("email", "alice@example.com")
	sealed, err := c.Encrypt(e)
	require.NoError(t, err)
	sealed, _ = sealed.Set("note", "not-ciphertext")

	out, err := c.Decrypt(sealed)
	require.Error(t, err)
	assert.True(t, out.Schema() == nil, "no partial entity on failure")

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, OpDecrypt, ce.Op)
	assert.Equal(t, "note", ce.Field)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.True(t, IsCryptoError(err))

	plain, _ := entity.New(accountSchema).Set("pin", 55)
	_, err = c.Decrypt(plain)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_BestEffortAccessors(t *testing.T) {
	c := NewCodec(testRing(t))

	e, _ := entity.New(accountSchema).Set("email", "garbage")
	assert.Equal(t, "", c.String(e, "email"))
	assert.Equal(t, int64(0), c.Int(e, "pin"))
	assert.Equal(t, "", c.String(e, "missing"))
}

func TestEncryptValue_Types(t *testing.T) {
	c := NewCodec(testRing(t))

	_, err := c.EncryptValue(schema.Field{Name: "b", Type: schema.TypeBool}, true)
	assert.Error(t, err)

	ct, err := c.EncryptValue(schema.Field{Name: "pin", Type: schema.TypeInt}, "42")
	require.NoError(t, err)
	v, err := c.DecryptValue(schema.Field{Name: "pin", Type: schema.TypeInt}, ct)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = c.DecryptValue(schema.Field{Name: "pin", Type: schema.TypeInt}, mustSeal(t, c, "forty"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func mustSeal(t *testing.T, c *Codec, s string) string {
	t.Helper()
	ct, err := c.Keyring().Seal(s)
	require.NoError(t, err)
	return ct
}
