package v1beta1_test

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/api/v1beta1"
)

func TestTypeMetaCheck(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		tm      v1beta1.TypeMeta
		wantErr string
	}{
		"valid": {
			tm: v1beta1.TypeMeta{APIVersion: v1beta1.APIVersion, Kind: "Configuration"},
		},
		"old version": {
			tm:      v1beta1.TypeMeta{APIVersion: "monana.nilp0inter.dev/v1alpha1", Kind: "Configuration"},
			wantErr: "unsupported apiVersion",
		},
		"wrong kind": {
			tm:      v1beta1.TypeMeta{APIVersion: v1beta1.APIVersion, Kind: "Policy"},
			wantErr: "unsupported kind",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.tm.APIVersion, tt.tm.GetAPIVersion())
			assert.Equal(t, tt.tm.Kind, tt.tm.GetKind())

			err := tt.tm.Check("Configuration")
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestExtendSchemaWithEnums(t *testing.T) {
	t.Parallel()

	jss := &jsonschema.Schema{Properties: jsonschema.NewProperties()}
	jss.Properties.Set("apiVersion", &jsonschema.Schema{Type: "string"})
	jss.Properties.Set("kind", &jsonschema.Schema{Type: "string"})

	v1beta1.ExtendSchemaWithEnums(jss, []string{v1beta1.APIVersion}, []string{"Configuration", "Places"})

	apiVersion, ok := jss.Properties.Get("apiVersion")
	require.True(t, ok)
	require.Len(t, apiVersion.OneOf, 1)
	assert.Equal(t, v1beta1.APIVersion, apiVersion.OneOf[0].Const)

	kind, ok := jss.Properties.Get("kind")
	require.True(t, ok)
	require.Len(t, kind.OneOf, 2)
	assert.Equal(t, "Places", kind.OneOf[1].Const)
}

func TestExtendSchemaWithEnumsPanics(t *testing.T) {
	t.Parallel()

	for _, missing := range []string{"apiVersion", "kind"} {
		jss := &jsonschema.Schema{Properties: jsonschema.NewProperties()}

		for _, p := range []string{"apiVersion", "kind"} {
			if p != missing {
				jss.Properties.Set(p, &jsonschema.Schema{Type: "string"})
			}
		}

		assert.Panics(t, func() {
			v1beta1.ExtendSchemaWithEnums(jss, []string{"v1"}, []string{"Kind1"})
		}, missing)
	}
}
