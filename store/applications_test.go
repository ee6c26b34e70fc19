package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationsKeepInsertionOrder(t *testing.T) {
	apps := NewApplications()
	apps.Put("zed", Application{RequesterID: "1", Status: StatusPending})
	apps.Put("Alpha", Application{RequesterID: "2", Status: StatusApproved})
	apps.Put("mid tag", Application{RequesterID: "3", Status: StatusPending})

	// Updating keeps the position.
	apps.Put("zed", Application{RequesterID: "1", Status: StatusApproved})

	assert.Equal(t, []string{"zed", "Alpha"}, apps.WithStatus(StatusApproved))
	assert.Equal(t, []string{"mid tag"}, apps.WithStatus(StatusPending))

	require.True(t, apps.Delete("Alpha"))
	assert.False(t, apps.Delete("Alpha"))
	assert.Equal(t, 2, apps.Len())

	var tags []string
	apps.Range(func(tag string, _ Application) bool {
		tags = append(tags, tag)
		return true
	})
	assert.Equal(t, []string{"zed", "mid tag"}, tags)
}

func TestApplicationsPendingFor(t *testing.T) {
	apps := NewApplications()
	apps.Put("one", Application{RequesterID: "u1", Status: StatusApproved})
	apps.Put("two", Application{RequesterID: "u1", Status: StatusPending})

	tag, ok := apps.PendingFor("u1")
	assert.True(t, ok)
	assert.Equal(t, "two", tag)

	_, ok = apps.PendingFor("u2")
	assert.False(t, ok)
}

func TestApplicationsJSONOrder(t *testing.T) {
	const doc = `{"b":{"discordId":"1","status":"pending"},"a":{"discordId":"2","status":"approved"},"c":{"discordId":"3","status":"pending"}}`

	apps := NewApplications()
	require.NoError(t, json.Unmarshal([]byte(doc), apps))
	assert.Equal(t, []ApplicationEntry{
		{Gamertag: "b", Application: Application{RequesterID: "1", Status: StatusPending}},
		{Gamertag: "a", Application: Application{RequesterID: "2", Status: StatusApproved}},
		{Gamertag: "c", Application: Application{RequesterID: "3", Status: StatusPending}},
	}, apps.Entries())

	out, err := json.Marshal(apps)
	require.NoError(t, err)
	assert.Equal(t, doc, string(out))
}

func TestApplicationsJSONDuplicateKey(t *testing.T) {
	const doc = `{"a":{"discordId":"1","status":"pending"},"b":{"discordId":"2","status":"pending"},"a":{"discordId":"3","status":"approved"}}`

	apps := NewApplications()
	require.NoError(t, json.Unmarshal([]byte(doc), apps))
	assert.Equal(t, []ApplicationEntry{
		{Gamertag: "a", Application: Application{RequesterID: "3", Status: StatusApproved}},
		{Gamertag: "b", Application: Application{RequesterID: "2", Status: StatusPending}},
	}, apps.Entries())
}

func TestApplicationsJSONRejectsNonObject(t *testing.T) {
	for _, doc := range []string{`[]`, `"x"`, `{"a":1}`, `{"a":{"discordId":"1"`} {
		apps := NewApplications()
		assert.Error(t, json.Unmarshal([]byte(doc), apps), doc)
	}
}

func TestAccessListHelpers(t *testing.T) {
	list := AccessList{{Name: "a", XUID: "1"}, {Name: "b", XUID: "2"}, {Name: "a", XUID: "3"}}
	assert.True(t, list.HasXUID("2"))
	assert.False(t, list.HasXUID("4"))

	out, removed := list.WithoutName("a")
	assert.True(t, removed)
	assert.Equal(t, AccessList{{Name: "b", XUID: "2"}}, out)
	assert.Len(t, list, 3)

	out, removed = list.WithoutName("zzz")
	assert.False(t, removed)
	assert.Equal(t, list, out)
}
