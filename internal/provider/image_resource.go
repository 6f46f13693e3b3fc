package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/terraform-plugin-framework-validators/float64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/ankek/terraform-provider-preview/internal/interfaces"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &ImageResource{}
var _ resource.ResourceWithConfigure = &ImageResource{}
var _ resource.ResourceWithImportState = &ImageResource{}

func NewImageResource() resource.Resource {
	return &ImageResource{}
}

// ImageResource defines the resource implementation.
type ImageResource struct {
	generator *PreviewGenerator
}

// ImageResourceModel describes the resource data model.
type ImageResourceModel struct {
	ID           types.String  `tfsdk:"id"`
	DocumentPath types.String  `tfsdk:"document_path"`
	DocumentJSON types.String  `tfsdk:"document_json"`
	OutputPath   types.String  `tfsdk:"output_path"`
	Format       types.String  `tfsdk:"format"`
	Multiplier   types.Float64 `tfsdk:"multiplier"`
	Width        types.Int64   `tfsdk:"width"`
	Height       types.Int64   `tfsdk:"height"`
	SHA256       types.String  `tfsdk:"sha256"`
	Diagnostics  types.List    `tfsdk:"diagnostics"`
}

func (r *ImageResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_image"
}

func (r *ImageResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Renders a design template to a PNG or JPEG file.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "Resource identifier",
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
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
				Required:            true,
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
			"diagnostics": schema.ListAttribute{
				MarkdownDescription: "Objects that were skipped while rendering and why.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (r *ImageResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	generator, ok := req.ProviderData.(*PreviewGenerator)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected *PreviewGenerator, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}
	r.generator = generator
}

func (r *ImageResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data ImageResourceModel

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(r.render(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// render generates the preview and fills the computed attributes
func (r *ImageResource) render(ctx context.Context, data *ImageResourceModel) (diags diag.Diagnostics) {
	if r.generator == nil {
		g, err := defaultGenerator()
		if err != nil {
			diags.AddError("Failed to configure renderer", err.Error())
			return diags
		}
		r.generator = g
	}

	// Set defaults
	if data.Format.IsNull() || data.Format.ValueString() == "" {
		data.Format = types.StringValue("png")
	}
	if data.Multiplier.IsNull() || data.Multiplier.IsUnknown() {
		data.Multiplier = types.Float64Value(r.generator.opts.Multiplier)
	}

	tflog.Debug(ctx, "rendering preview", map[string]interface{}{
		"output_path": data.OutputPath.ValueString(),
		"format":      data.Format.ValueString(),
	})

	result, err := r.generator.Generate(ctx, interfaces.PreviewConfig{
		DocumentPath: data.DocumentPath.ValueString(),
		DocumentJSON: data.DocumentJSON.ValueString(),
		OutputPath:   data.OutputPath.ValueString(),
		Format:       data.Format.ValueString(),
		Multiplier:   data.Multiplier.ValueFloat64(),
	})
	if err != nil {
		diags.AddError("Failed to generate preview", err.Error())
		return diags
	}

	for _, d := range result.Diagnostics {
		tflog.Warn(ctx, "object skipped", map[string]interface{}{"detail": d})
	}

	list, listDiags := types.ListValueFrom(ctx, types.StringType, result.Diagnostics)
	diags.Append(listDiags...)

	data.ID = types.StringValue(fmt.Sprintf("%s_%s", data.OutputPath.ValueString(), result.SHA256[:12]))
	data.Width = types.Int64Value(int64(result.Width))
	data.Height = types.Int64Value(int64(result.Height))
	data.SHA256 = types.StringValue(result.SHA256)
	data.Diagnostics = list
	return diags
}

func (r *ImageResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data ImageResourceModel

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	// Check if output file still exists
	if _, err := os.Stat(data.OutputPath.ValueString()); os.IsNotExist(err) {
		tflog.Info(ctx, "preview file removed outside of Terraform", map[string]interface{}{
			"output_path": data.OutputPath.ValueString(),
		})
		resp.State.RemoveResource(ctx)
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *ImageResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data ImageResourceModel

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	// Re-render with the updated configuration
	resp.Diagnostics.Append(r.render(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *ImageResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data ImageResourceModel

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if err := os.Remove(data.OutputPath.ValueString()); err != nil && !os.IsNotExist(err) {
		resp.Diagnostics.AddError("Failed to remove preview file", err.Error())
	}
}

func (r *ImageResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	resource.ImportStatePassthroughID(ctx, path.Root("id"), req, resp)
}
