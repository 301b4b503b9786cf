package settings_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/telegram-storefront/internal/settings"
)

func TestSettings_Toggles(t *testing.T) {
	st := settings.New(true, false)

	assert.True(t, st.DeliveryEnabled())
	assert.False(t, st.PickupEnabled())

	st.SetDeliveryEnabled(false)
	st.SetPickupEnabled(true)

	assert.False(t, st.DeliveryEnabled())
	assert.True(t, st.PickupEnabled())

	snapshot := st.Snapshot()
	assert.False(t, snapshot.DeliveryEnabled)
	assert.True(t, snapshot.PickupEnabled)
}

func TestSettings_ConcurrentAccess(t *testing.T) {
	st := settings.New(true, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(enabled bool) {
			defer wg.Done()
			st.SetDeliveryEnabled(enabled)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = st.DeliveryEnabled()
			_ = st.Snapshot()
		}()
	}
	wg.Wait()
}
