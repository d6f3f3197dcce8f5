package fixedfunc

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"

	"github.com/aerogpu/aero9/cmdstream"
)

// Shader is one precompiled fixed-function program. Bytecode is the wire
// payload for CREATE_SHADER_DXBC; WGSL is the equivalent source the replay
// backend compiles for execution. Two Shaders are the same program exactly
// when their bytecode is byte-identical.
type Shader struct {
	Name     string
	Stage    cmdstream.ShaderStage
	Bytecode []byte
	WGSL     string
}

// makeBytecode packs a stable container for one synthesized program:
// fourcc, a 16-byte identity digest, container version, total size, then
// the stage and program name. The host never executes these bytes; it only
// needs distinct programs to stay distinct and identical selections to
// stay byte-identical.
func makeBytecode(stage cmdstream.ShaderStage, name string) []byte {
	body := make([]byte, 4+len(name))
	binary.LittleEndian.PutUint32(body, uint32(stage))
	copy(body[4:], name)

	total := 4 + 16 + 4 + 4 + len(body)
	blob := make([]byte, total)
	copy(blob, "DXBC")

	h := fnv.New64a()
	h.Write([]byte(name))
	sum := h.Sum64()
	binary.LittleEndian.PutUint64(blob[4:], sum)
	binary.LittleEndian.PutUint64(blob[12:], sum^uint64(stage+1))

	binary.LittleEndian.PutUint32(blob[20:], 1)
	binary.LittleEndian.PutUint32(blob[24:], uint32(total))
	copy(blob[28:], body)
	return blob
}

func vs(name, wgsl string) *Shader {
	return &Shader{
		Name:     name,
		Stage:    cmdstream.StageVertex,
		Bytecode: makeBytecode(cmdstream.StageVertex, name),
		WGSL:     wgsl,
	}
}

func ps(name, wgsl string) *Shader {
	return &Shader{
		Name:     name,
		Stage:    cmdstream.StagePixel,
		Bytecode: makeBytecode(cmdstream.StagePixel, name),
		WGSL:     wgsl,
	}
}

// WVPRegister is the first of four float4 vertex constant registers that
// carry the world*view*projection matrix for transforming vertex shaders.
const WVPRegister = 240

// TFactorRegister is the pixel constant register carrying the
// TEXTUREFACTOR render state as normalized RGBA.
const TFactorRegister = 0

const wgslGlobals = `struct Globals {
    world_view_proj: mat4x4<f32>,
};
@group(0) @binding(0) var<uniform> globals: Globals;

`

const wgslVsOut = `struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) uv: vec2<f32>,
};

`

// Vertex programs. Pre-transformed inputs (RHW layouts or CPU-transformed
// scratch buffers) arrive in clip space and pass through; the Wvp family
// multiplies by the constant matrix. D3DCOLOR attributes arrive as unorm
// BGRA and are swizzled to RGBA here.
var (
	VsPassthroughPosColor = vs("vs_passthrough_pos_color", wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec4<f32>, @location(1) color: vec4<f32>) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(pos.xyz, 1.0);
    out.color = color.zyxw;
    out.uv = vec2<f32>(0.0, 0.0);
    return out;
}
`)

	VsPassthroughPosColorTex1 = vs("vs_passthrough_pos_color_tex1", wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec4<f32>, @location(1) color: vec4<f32>, @location(2) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(pos.xyz, 1.0);
    out.color = color.zyxw;
    out.uv = uv;
    return out;
}
`)

	VsPassthroughPosWhite = vs("vs_passthrough_pos_white", wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec4<f32>) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(pos.xyz, 1.0);
    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);
    out.uv = vec2<f32>(0.0, 0.0);
    return out;
}
`)

	VsPassthroughPosWhiteTex1 = vs("vs_passthrough_pos_white_tex1", wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec4<f32>, @location(1) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = vec4<f32>(pos.xyz, 1.0);
    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);
    out.uv = uv;
    return out;
}
`)

	VsWvpPosColor = vs("vs_wvp_pos_color", wgslGlobals+wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) color: vec4<f32>) -> VsOut {
    var out: VsOut;
    out.pos = globals.world_view_proj * vec4<f32>(pos, 1.0);
    out.color = color.zyxw;
    out.uv = vec2<f32>(0.0, 0.0);
    return out;
}
`)

	VsWvpPosColorTex0 = vs("vs_wvp_pos_color_tex0", wgslGlobals+wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) color: vec4<f32>, @location(2) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = globals.world_view_proj * vec4<f32>(pos, 1.0);
    out.color = color.zyxw;
    out.uv = uv;
    return out;
}
`)

	VsWvpPosWhite = vs("vs_wvp_pos_white", wgslGlobals+wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> VsOut {
    var out: VsOut;
    out.pos = globals.world_view_proj * vec4<f32>(pos, 1.0);
    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);
    out.uv = vec2<f32>(0.0, 0.0);
    return out;
}
`)

	VsTransformPosWhiteTex1 = vs("vs_transform_pos_white_tex1", wgslGlobals+wgslVsOut+`@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) uv: vec2<f32>) -> VsOut {
    var out: VsOut;
    out.pos = globals.world_view_proj * vec4<f32>(pos, 1.0);
    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);
    out.uv = uv;
    return out;
}
`)
)

// psSource assembles a stage-0 pixel program: sample inputs, one color
// expression, one alpha expression. tex/factor declarations are emitted
// only when the expressions use them.
func psSource(colorExpr, alphaExpr string, usesTex, usesFactor bool) string {
	src := `struct PsIn {
    @location(0) color: vec4<f32>,
    @location(1) uv: vec2<f32>,
};

`
	if usesTex {
		src += `@group(1) @binding(0) var t0: texture_2d<f32>;
@group(1) @binding(1) var s0: sampler;

`
	}
	if usesFactor {
		src += `struct PsConsts {
    texture_factor: vec4<f32>,
};
@group(1) @binding(2) var<uniform> ps_consts: PsConsts;

`
	}
	src += `@fragment
fn ps_main(in: PsIn) -> @location(0) vec4<f32> {
`
	if usesTex {
		src += "    let tex = textureSample(t0, s0, in.uv);\n"
	}
	src += "    let diff = in.color;\n"
	if usesFactor {
		src += "    let factor = ps_consts.texture_factor;\n"
	}
	src += "    return vec4<f32>(" + colorExpr + ", " + alphaExpr + ");\n}\n"
	return src
}

// Pixel programs, one per reachable stage-0 combiner outcome. Names pair
// the color result with the alpha result.
var (
	PsPassthroughColor = ps("ps_passthrough_color",
		psSource("diff.rgb", "diff.a", false, false))

	PsStage0ModulateTexture = ps("ps_stage0_modulate_texture",
		psSource("tex.rgb * diff.rgb", "tex.a", true, false))

	PsStage0ModulateDiffuse = ps("ps_stage0_modulate_diffuse",
		psSource("tex.rgb * diff.rgb", "diff.a", true, false))

	PsTexturedModulateVertexColor = ps("ps_textured_modulate_vertex_color",
		psSource("tex.rgb * diff.rgb", "tex.a * diff.a", true, false))

	PsStage0DiffuseModulate = ps("ps_stage0_diffuse_modulate",
		psSource("diff.rgb", "tex.a * diff.a", true, false))

	PsStage0DiffuseTexture = ps("ps_stage0_diffuse_texture",
		psSource("diff.rgb", "tex.a", true, false))

	PsStage0TextureDiffuse = ps("ps_stage0_texture_diffuse",
		psSource("tex.rgb", "diff.a", true, false))

	PsStage0TextureModulate = ps("ps_stage0_texture_modulate",
		psSource("tex.rgb", "tex.a * diff.a", true, false))

	PsStage0TextureTexture = ps("ps_stage0_texture_texture",
		psSource("tex.rgb", "tex.a", true, false))

	PsStage0TextureFactor = ps("ps_stage0_texture_factor",
		psSource("tex.rgb * factor.rgb", "tex.a * factor.a", true, true))

	PsStage0AddTextureDiffuseAlphaTexture = ps("ps_stage0_add_texture_diffuse_alpha_texture",
		psSource("tex.rgb + diff.rgb", "tex.a", true, false))

	PsStage0SubtractTextureDiffuseAlphaTexture = ps("ps_stage0_subtract_texture_diffuse_alpha_texture",
		psSource("tex.rgb - diff.rgb", "tex.a", true, false))

	PsStage0SubtractDiffuseTextureAlphaTexture = ps("ps_stage0_subtract_diffuse_texture_alpha_texture",
		psSource("diff.rgb - tex.rgb", "tex.a", true, false))

	PsStage0Modulate2xTextureDiffuseAlphaTexture = ps("ps_stage0_modulate2x_texture_diffuse_alpha_texture",
		psSource("2.0 * tex.rgb * diff.rgb", "tex.a", true, false))

	PsStage0Modulate4xTextureDiffuseAlphaTexture = ps("ps_stage0_modulate4x_texture_diffuse_alpha_texture",
		psSource("4.0 * tex.rgb * diff.rgb", "tex.a", true, false))
)

// ByName resolves a synthesized program by name; the replay backend uses
// it to map created bytecode back to compilable WGSL.
func ByName(name string) *Shader {
	for _, s := range allShaders {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ByBytecode resolves a synthesized program from its wire payload, or nil
// when the bytecode is not from this catalog (a real application shader).
func ByBytecode(bytecode []byte) *Shader {
	for _, s := range allShaders {
		if bytes.Equal(s.Bytecode, bytecode) {
			return s
		}
	}
	return nil
}

var allShaders = []*Shader{
	VsPassthroughPosColor,
	VsPassthroughPosColorTex1,
	VsPassthroughPosWhite,
	VsPassthroughPosWhiteTex1,
	VsWvpPosColor,
	VsWvpPosColorTex0,
	VsWvpPosWhite,
	VsTransformPosWhiteTex1,
	PsPassthroughColor,
	PsStage0ModulateTexture,
	PsStage0ModulateDiffuse,
	PsTexturedModulateVertexColor,
	PsStage0DiffuseModulate,
	PsStage0DiffuseTexture,
	PsStage0TextureDiffuse,
	PsStage0TextureModulate,
	PsStage0TextureTexture,
	PsStage0TextureFactor,
	PsStage0AddTextureDiffuseAlphaTexture,
	PsStage0SubtractTextureDiffuseAlphaTexture,
	PsStage0SubtractDiffuseTextureAlphaTexture,
	PsStage0Modulate2xTextureDiffuseAlphaTexture,
	PsStage0Modulate4xTextureDiffuseAlphaTexture,
}
