package i18n

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslations(t *testing.T) {
	t.Run("empty language selects english", func(t *testing.T) {
		trans, err := NewTranslations("")
		require.NoError(t, err)
		assert.Equal(t, "en", trans.Language())
		assert.Equal(t, "Lint passed", trans.GetMessage("lint.passed", 0, nil))
	})

	t.Run("traditional chinese", func(t *testing.T) {
		trans, err := NewTranslations("zh-TW")
		require.NoError(t, err)
		assert.Equal(t, "zh-TW", trans.Language())
		assert.Equal(t, "Lint 通過", trans.GetMessage("lint.passed", 0, nil))
	})

	t.Run("unsupported language", func(t *testing.T) {
		trans, err := NewTranslations("xx-invalid-tag-!")
		assert.Error(t, err)
		assert.Nil(t, trans)
	})

	t.Run("language without catalog", func(t *testing.T) {
		_, err := NewTranslations("fr")
		assert.Error(t, err)
	})
}

func TestGetMessage(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	t.Run("template data", func(t *testing.T) {
		msg := trans.GetMessage("mr.created", 0, map[string]interface{}{"IID": 12})
		assert.Equal(t, "Merge request !12 created", msg)
	})

	t.Run("plural forms", func(t *testing.T) {
		assert.Equal(t, "Removed 1 expired entry",
			trans.GetMessage("cache.expired_cleaned", 1, map[string]interface{}{"Count": 1}))
		assert.Equal(t, "Removed 3 expired entries",
			trans.GetMessage("cache.expired_cleaned", 3, map[string]interface{}{"Count": 3}))
	})

	t.Run("missing key", func(t *testing.T) {
		assert.Equal(t, "Translation missing: nope.nothing", trans.GetMessage("nope.nothing", 0, nil))
	})
}

func TestSetLanguage(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	require.NoError(t, trans.SetLanguage("zh-TW"))
	assert.Equal(t, "已清除快取", trans.GetMessage("cache.cleaned", 0, nil))

	assert.Error(t, trans.SetLanguage("de"))
	assert.Equal(t, "zh-TW", trans.Language())
}

// Every catalog must define the same message IDs as the english one.
func TestCatalogsHaveSameKeys(t *testing.T) {
	english := catalogKeys(t, "locales/active.en.toml")

	entries, err := fs.ReadDir(localeFS, "locales")
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.Name() == "active.en.toml" {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			assert.ElementsMatch(t, english, catalogKeys(t, "locales/"+entry.Name()))
		})
	}
}

func catalogKeys(t *testing.T, path string) []string {
	data, err := localeFS.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, toml.Unmarshal(data, &raw))

	var keys []string
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			id := strings.TrimPrefix(prefix+"."+k, ".")
			if sub, ok := v.(map[string]interface{}); ok {
				if _, plural := sub["other"]; plural {
					keys = append(keys, id)
					continue
				}
				walk(id, sub)
				continue
			}
			keys = append(keys, id)
		}
	}
	walk("", raw)
	return keys
}
