package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Auriculares Inalámbricos", "auriculares-inalambricos"},
		{"  Teclado   Mecánico!! ", "teclado-mecanico"},
		{"Ñandú 3000", "nandu-3000"},
		{"---", ""},
		{"Cámara 4K / Vídeo", "camara-4k-video"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in))
		})
	}
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "mouse-a1b2", WithSuffix("mouse", "a1b2"))
	assert.Equal(t, "mouse", WithSuffix("mouse", ""))
	assert.Equal(t, "a1b2", WithSuffix("", "a1b2"))
}
