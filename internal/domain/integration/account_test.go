package integration

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommerceAccount(t *testing.T) {
	tenantID := uuid.New()

	t.Run("connects a shopify store", func(t *testing.T) {
		a, err := NewCommerceAccount(tenantID, CommercePlatformShopify, "acme.myshopify.com", `{"access_token":"shpat_xxx"}`)

		require.NoError(t, err)
		assert.Equal(t, tenantID, a.TenantID)
		assert.Equal(t, CommercePlatformShopify, a.Platform)
		assert.Equal(t, "acme.myshopify.com", a.ShopDomain)
		assert.Equal(t, `{"access_token":"shpat_xxx"}`, a.Credentials)
		assert.Equal(t, AccountStatusActive, a.Status)
		assert.True(t, a.IsActive())
		assert.Len(t, a.GetDomainEvents(), 1)
	})

	t.Run("connects a woocommerce store", func(t *testing.T) {
		a, err := NewCommerceAccount(tenantID, CommercePlatformWooCommerce, "shop.example.com", `{"consumer_key":"ck_1","consumer_secret":"cs_1"}`)

		require.NoError(t, err)
		assert.Equal(t, CommercePlatformWooCommerce, a.Platform)
	})

	t.Run("lowercases the shop domain", func(t *testing.T) {
		a, err := NewCommerceAccount(tenantID, CommercePlatformShopify, "  Acme.MyShopify.COM ", `{}`)

		require.NoError(t, err)
		assert.Equal(t, "acme.myshopify.com", a.ShopDomain)
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		a, err := NewCommerceAccount(tenantID, CommercePlatformCode("amazon"), "shop.example.com", `{}`)

		assert.ErrorIs(t, err, ErrAccountInvalidPlatform)
		assert.Nil(t, a)
	})

	t.Run("rejects empty shop domain", func(t *testing.T) {
		a, err := NewCommerceAccount(tenantID, CommercePlatformShopify, "   ", `{}`)

		assert.ErrorIs(t, err, ErrAccountShopDomainRequired)
		assert.Nil(t, a)
	})

	t.Run("rejects malformed shop domains", func(t *testing.T) {
		for _, domain := range []string{"no-dot", "has space.com", strings.Repeat("a", 250) + ".example.com"} {
			a, err := NewCommerceAccount(tenantID, CommercePlatformShopify, domain, `{}`)
			assert.ErrorIs(t, err, ErrAccountShopDomainInvalid, "domain %q", domain)
			assert.Nil(t, a)
		}
	})

	t.Run("rejects invalid credentials", func(t *testing.T) {
		for _, creds := range []string{"", "   ", "{not json"} {
			a, err := NewCommerceAccount(tenantID, CommercePlatformShopify, "shop.example.com", creds)
			assert.ErrorIs(t, err, ErrAccountCredentialsInvalid, "credentials %q", creds)
			assert.Nil(t, a)
		}
	})
}

func TestCommerceAccount_StatusTransitions(t *testing.T) {
	newAccount := func(t *testing.T) *CommerceAccount {
		a, err := NewCommerceAccount(uuid.New(), CommercePlatformShopify, "acme.myshopify.com", `{"access_token":"tok"}`)
		require.NoError(t, err)
		a.ClearDomainEvents()
		return a
	}

	t.Run("deactivate and reactivate", func(t *testing.T) {
		a := newAccount(t)

		require.NoError(t, a.Deactivate())
		assert.Equal(t, AccountStatusInactive, a.Status)
		assert.False(t, a.IsActive())
		assert.Error(t, a.Deactivate())

		require.NoError(t, a.Activate())
		assert.True(t, a.IsActive())
		assert.Error(t, a.Activate())
	})

	t.Run("record error marks the account", func(t *testing.T) {
		a := newAccount(t)

		a.RecordError("401 unauthorized from platform")

		assert.Equal(t, AccountStatusError, a.Status)
		assert.Equal(t, "401 unauthorized from platform", a.LastError)
		assert.NotNil(t, a.LastErrorAt)
		assert.False(t, a.IsActive())
		assert.Len(t, a.GetDomainEvents(), 1)
	})

	t.Run("long error messages are truncated", func(t *testing.T) {
		a := newAccount(t)

		a.RecordError(strings.Repeat("x", 600))

		assert.Len(t, a.LastError, 500)
	})

	t.Run("activate clears the error state", func(t *testing.T) {
		a := newAccount(t)
		a.RecordError("boom")

		require.NoError(t, a.Activate())

		assert.True(t, a.IsActive())
		assert.Empty(t, a.LastError)
		assert.Nil(t, a.LastErrorAt)
	})
}

func TestCommerceAccount_UpdateCredentials(t *testing.T) {
	newAccount := func(t *testing.T) *CommerceAccount {
		a, err := NewCommerceAccount(uuid.New(), CommercePlatformShopify, "acme.myshopify.com", `{"access_token":"old"}`)
		require.NoError(t, err)
		return a
	}

	t.Run("replaces credentials", func(t *testing.T) {
		a := newAccount(t)

		require.NoError(t, a.UpdateCredentials(`{"access_token":"new"}`))

		assert.Equal(t, `{"access_token":"new"}`, a.Credentials)
	})

	t.Run("recovers an errored account", func(t *testing.T) {
		a := newAccount(t)
		a.RecordError("expired token")

		require.NoError(t, a.UpdateCredentials(`{"access_token":"fresh"}`))

		assert.Equal(t, AccountStatusActive, a.Status)
		assert.Empty(t, a.LastError)
		assert.Nil(t, a.LastErrorAt)
	})

	t.Run("does not reactivate a deactivated account", func(t *testing.T) {
		a := newAccount(t)
		require.NoError(t, a.Deactivate())

		require.NoError(t, a.UpdateCredentials(`{"access_token":"new"}`))

		assert.Equal(t, AccountStatusInactive, a.Status)
	})

	t.Run("rejects invalid JSON and keeps the old secrets", func(t *testing.T) {
		a := newAccount(t)

		err := a.UpdateCredentials("{broken")

		assert.ErrorIs(t, err, ErrAccountCredentialsInvalid)
		assert.Equal(t, `{"access_token":"old"}`, a.Credentials)
	})
}

func TestNewCRMAccount(t *testing.T) {
	tenantID := uuid.New()

	t.Run("connects hubspot", func(t *testing.T) {
		a, err := NewCRMAccount(tenantID, CRMPlatformHubSpot, `{"access_token":"pat-xxx"}`)

		require.NoError(t, err)
		assert.Equal(t, tenantID, a.TenantID)
		assert.Equal(t, CRMPlatformHubSpot, a.Platform)
		assert.Equal(t, AccountStatusActive, a.Status)
		assert.Len(t, a.GetDomainEvents(), 1)
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		a, err := NewCRMAccount(tenantID, CRMPlatformCode("salesforce"), `{}`)

		assert.ErrorIs(t, err, ErrAccountInvalidPlatform)
		assert.Nil(t, a)
	})

	t.Run("rejects invalid credentials", func(t *testing.T) {
		a, err := NewCRMAccount(tenantID, CRMPlatformHubSpot, "nope")

		assert.ErrorIs(t, err, ErrAccountCredentialsInvalid)
		assert.Nil(t, a)
	})
}

func TestCRMAccount_ErrorRecovery(t *testing.T) {
	a, err := NewCRMAccount(uuid.New(), CRMPlatformHubSpot, `{"access_token":"pat"}`)
	require.NoError(t, err)
	a.ClearDomainEvents()

	a.RecordError("403 from hubspot")
	assert.Equal(t, AccountStatusError, a.Status)
	assert.Equal(t, "403 from hubspot", a.LastError)
	assert.Len(t, a.GetDomainEvents(), 1)

	require.NoError(t, a.UpdateCredentials(`{"access_token":"rotated"}`))
	assert.Equal(t, AccountStatusActive, a.Status)
	assert.Empty(t, a.LastError)
}
