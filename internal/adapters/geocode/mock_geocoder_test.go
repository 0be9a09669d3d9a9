package geocode

import (
	"context"
	"route-optimizer-service/internal/ports"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGeocoder(t *testing.T) {
	g := NewMockGeocoder([]MockEntry{{Address: "A", Lat: 1, Lng: 2}})

	res, err := g.Geocode(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Coordinates.Lat)

	_, err = g.Geocode(context.Background(), "B")
	assert.ErrorIs(t, err, ports.ErrNoMatch)

	assert.Equal(t, []string{"A", "B"}, g.Calls())
}
