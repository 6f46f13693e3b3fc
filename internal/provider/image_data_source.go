package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/float64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/ankek/terraform-provider-preview/internal/interfaces"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &ImageDataSource{}
var _ datasource.DataSourceWithConfigure = &ImageDataSource{}

// ImageDataSource defines the data source implementation.
type ImageDataSource struct {
	generator *PreviewGenerator
}

func NewImageDataSource() datasource.DataSource {
	return &ImageDataSource{}
}

// ImageDataSourceModel describes the data source data model.
type ImageDataSourceModel struct {
	ID           types.String  `tfsdk:"id"`
	DocumentPath types.String  `tfsdk:"document_path"`
	DocumentJSON types.String  `tfsdk:"document_json"`
	OutputPath   types.String  `tfsdk:"output_path"`
	Format       types.String  `tfsdk:"format"`
	Multiplier   types.Float64 `tfsdk:"multiplier"`
	Width        types.Int64   `tfsdk:"width"`
	Height       types.Int64   `tfsdk:"height"`
	SHA256       types.String  `tfsdk:"sha256"`
	DataURI      types.String  `tfsdk:"data_uri"`
	Diagnostics  types.List    `tfsdk:"diagnostics"`
}

func (d *ImageDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_image"
}

func (d *ImageDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Renders a design template. Without output_path the image is returned as a data URI.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "Data source identifier",
			},
			"document_path": schema.StringAttribute{
				MarkdownDescription: "Path to the template document (JSON).",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
					stringvalidator.ConflictsWith(path.MatchRoot("document_json")),
				},
			},
			"document_json": schema.StringAttribute{
				MarkdownDescription: "Inline template document.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
					stringvalidator.ConflictsWith(path.MatchRoot("document_path")),
				},
			},
			"output_path": schema.StringAttribute{
				MarkdownDescription: "Path where the preview will be saved.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"format": schema.StringAttribute{
				MarkdownDescription: "Output format: 'png' or 'jpeg'. Default is 'png'.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.OneOf("png", "jpeg", "jpg"),
				},
			},
			"multiplier": schema.Float64Attribute{
				MarkdownDescription: "Output resolution as a multiple of the frame size. Default is 3.",
				Optional:            true,
				Validators: []validator.Float64{
					float64validator.AtLeast(1),
				},
			},
			"width": schema.Int64Attribute{
				MarkdownDescription: "Width of the rendered image in pixels.",
				Computed:            true,
			},
			"height": schema.Int64Attribute{
				MarkdownDescription: "Height of the rendered image in pixels.",
				Computed:            true,
			},
			"sha256": schema.StringAttribute{
				MarkdownDescription: "SHA-256 of the rendered image.",
				Computed:            true,
			},
			"data_uri": schema.StringAttribute{
				MarkdownDescription: "Base64 data URI of the image, set when output_path is empty.",
				Computed:            true,
			},
			"diagnostics": schema.ListAttribute{
				MarkdownDescription: "Objects that were skipped while rendering and why.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *ImageDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	generator, ok := req.ProviderData.(*PreviewGenerator)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *PreviewGenerator, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}
	d.generator = generator
}

func (d *ImageDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data ImageDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if d.generator == nil {
		g, err := defaultGenerator()
		if err != nil {
			resp.Diagnostics.AddError("Failed to configure renderer", err.Error())
			return
		}
		d.generator = g
	}

	// Set defaults
	if data.Format.IsNull() || data.Format.ValueString() == "" {
		data.Format = types.StringValue("png")
	}
	if data.Multiplier.IsNull() {
		data.Multiplier = types.Float64Value(d.generator.opts.Multiplier)
	}

	result, err := d.generator.Generate(ctx, interfaces.PreviewConfig{
		DocumentPath: data.DocumentPath.ValueString(),
		DocumentJSON: data.DocumentJSON.ValueString(),
		OutputPath:   data.OutputPath.ValueString(),
		Format:       data.Format.ValueString(),
		Multiplier:   data.Multiplier.ValueFloat64(),
	})
	if err != nil {
		resp.Diagnostics.AddError("Failed to generate preview", err.Error())
		return
	}

	for _, msg := range result.Diagnostics {
		tflog.Warn(ctx, "object skipped", map[string]interface{}{"detail": msg})
	}

	list, diags := types.ListValueFrom(ctx, types.StringType, result.Diagnostics)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	data.ID = types.StringValue(result.SHA256[:16])
	data.Width = types.Int64Value(int64(result.Width))
	data.Height = types.Int64Value(int64(result.Height))
	data.SHA256 = types.StringValue(result.SHA256)
	data.DataURI = types.StringValue(result.DataURI)
	data.Diagnostics = list

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
