package provider

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/ankek/terraform-provider-preview/internal/config"
)

// Ensure PreviewProvider satisfies various provider interfaces.
var _ provider.Provider = &PreviewProvider{}

// logLevelEnv selects the level of the core render logger
const logLevelEnv = "TF_LOG_PROVIDER_PREVIEW"

var durationPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`)

// PreviewProvider defines the provider implementation.
type PreviewProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// PreviewProviderModel describes the provider data model.
type PreviewProviderModel struct {
	ConfigPath   types.String `tfsdk:"config_path"`
	FetchTimeout types.String `tfsdk:"fetch_timeout"`
}

func (p *PreviewProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "preview"
	resp.Version = p.version
}

func (p *PreviewProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "The Preview provider renders design templates (frame, background and layered objects) to raster images.",
		Attributes: map[string]schema.Attribute{
			"config_path": schema.StringAttribute{
				Description: "Path to an HCL render configuration with render, fetch and font blocks.",
				Optional:    true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"fetch_timeout": schema.StringAttribute{
				Description: "Timeout for each image or SVG download, as a Go duration such as \"10s\". Overrides the configuration file.",
				Optional:    true,
				Validators: []validator.String{
					stringvalidator.RegexMatches(durationPattern, "must be a duration such as \"10s\" or \"1m30s\""),
				},
			},
		},
	}
}

func (p *PreviewProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data PreviewProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	cfg := config.Default()
	if path := data.ConfigPath.ValueString(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			resp.Diagnostics.AddError("Failed to load render configuration", err.Error())
			return
		}
		cfg = loaded
		tflog.Debug(ctx, "loaded render configuration", map[string]interface{}{"config_path": path})
	}

	if timeout := data.FetchTimeout.ValueString(); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			resp.Diagnostics.AddError("Invalid fetch_timeout", "fetch_timeout must be a positive duration such as \"10s\"")
			return
		}
		cfg.Fetch.Timeout = d
	}

	opts, err := cfg.RendererOptions(newCoreLogger())
	if err != nil {
		resp.Diagnostics.AddError("Failed to configure renderer", err.Error())
		return
	}

	generator := NewPreviewGenerator(opts)
	resp.DataSourceData = generator
	resp.ResourceData = generator
}

func (p *PreviewProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewImageResource,
	}
}

func (p *PreviewProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewImageDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &PreviewProvider{
			version: version,
		}
	}
}

// newCoreLogger returns the logger handed to the render pipeline. Plugin
// stderr is collected by Terraform.
func newCoreLogger() hclog.Logger {
	level := hclog.LevelFromString(os.Getenv(logLevelEnv))
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "preview",
		Level:  level,
		Output: os.Stderr,
	})
}

// defaultGenerator is used when the provider block was not configured
func defaultGenerator() (*PreviewGenerator, error) {
	opts, err := config.Default().RendererOptions(newCoreLogger())
	if err != nil {
		return nil, err
	}
	return NewPreviewGenerator(opts), nil
}
