package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// uniformSlotAlignment is the WebGPU default minUniformBufferOffsetAlignment.
	uniformSlotAlignment = 256

	// initialUniformSlots sizes the shared uniform buffer before the first grow.
	initialUniformSlots = 256
)

// wgpuProgram is a compiled WGSL program plus everything derived from its reflection.
type wgpuProgram struct {
	name       string
	reflection shader.Reflection
	writer     *shader.BlockWriter

	module         *wgpu.ShaderModule
	bindLayout     *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout

	// pipelines are keyed by topology and the component count of each vertex input,
	// since the vertex format comes from the mesh.
	pipelines  map[string]*wgpu.RenderPipeline
	bindGroups map[string]*wgpu.BindGroup
}

type wgpuMesh struct {
	template mesh.Template
	buffers  map[string]*wgpu.Buffer
	index    *wgpu.Buffer
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

func (t *wgpuTexture) release() {
	t.sampler.Release()
	t.view.Release()
	t.texture.Release()
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass
	clearColor  wgpu.Color

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	programs    map[uniform.ProgramID]*wgpuProgram
	current     *wgpuProgram
	nextProgram uniform.ProgramID

	meshes   map[MeshHandle]*wgpuMesh
	nextMesh MeshHandle

	textures    map[texture.Handle]*wgpuTexture
	units       map[int]texture.Handle
	fallback    *wgpuTexture
	nextTexture texture.Handle

	// uniformBuffer holds one slot per draw in the current frame, addressed with
	// dynamic offsets.
	uniformBuffer   *wgpu.Buffer
	uniformCapacity uint64
	uniformCursor   uint64

	// retired resources may still be referenced by the frame being encoded and are
	// released after it is submitted.
	retiredBuffers    []*wgpu.Buffer
	retiredBindGroups []*wgpu.BindGroup
	retiredTextures   []*wgpuTexture
}

var _ Backend = &wgpuRendererBackendImpl{}

func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, clearColor [4]float64) (Backend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("window has no surface descriptor")
	}

	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		clearColor:  wgpu.Color{R: clearColor[0], G: clearColor[1], B: clearColor[2], A: clearColor[3]},
		programs:    make(map[uniform.ProgramID]*wgpuProgram),
		meshes:      make(map[MeshHandle]*wgpuMesh),
		textures:    make(map[texture.Handle]*wgpuTexture),
		units:       make(map[int]texture.Handle),
		nextProgram: 1,
		nextMesh:    1,
		nextTexture: 1,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

func (b *wgpuRendererBackendImpl) Init(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.configureSurface(width, height); err != nil {
		return err
	}

	fallback, err := b.uploadTexture("Fallback", common.TextureStagingData{
		Pixels: []byte{255, 255, 255, 255},
		Width:  1,
		Height: 1,
		Format: common.PixelFormatRGBA,
	})
	if err != nil {
		return fmt.Errorf("fallback texture: %w", err)
	}
	b.fallback = fallback

	return b.allocateUniformBuffer(initialUniformSlots * uniformSlotAlignment)
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	if err := b.configureSurface(width, height); err != nil {
		common.Logger().Error("surface configure failed", "width", width, "height", height, "err", err)
	}
}

// configureSurface configures the swapchain and recreates the MSAA and depth targets.
// Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) configureSurface(width, height int) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseTargets()
	count := uint32(b.sampleCount)
	msaaEnabled := count > 1
	size := wgpu.Extent3D{
		Width:              uint32(width),
		Height:             uint32(height),
		DepthOrArrayLayers: 1,
	}

	if msaaEnabled {
		// The render pass draws into the MSAA texture and resolves into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("msaa texture: %w", err)
		}
		b.msaaTexture = msaaTexture
		if b.msaaTextureView, err = msaaTexture.CreateView(nil); err != nil {
			return fmt.Errorf("msaa texture view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("depth texture: %w", err)
	}
	b.depthTexture = depthTexture
	if b.depthTextureView, err = depthTexture.CreateView(nil); err != nil {
		return fmt.Errorf("depth texture view: %w", err)
	}

	// When MSAA is enabled, View is the MSAA texture and ResolveTarget is set per-frame to
	// the swapchain view. When disabled, View is set per-frame to the swapchain view.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

// releaseTargets frees the MSAA and depth targets of the previous configuration.
func (b *wgpuRendererBackendImpl) releaseTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
		b.depthTextureView, b.depthTexture = nil, nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateProgram(name string, src shader.Source) (uniform.ProgramID, error) {
	if !src.HasWGSL() {
		return 0, fmt.Errorf("%w: program %q has no WGSL source", shader.ErrNoSource, name)
	}
	refl, err := shader.Reflect(src.WGSL)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src.WGSL,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("shader module: %w", err)
	}

	prog := &wgpuProgram{
		name:       name,
		reflection: refl,
		writer:     shader.NewBlockWriter(refl),
		module:     module,
		pipelines:  make(map[string]*wgpu.RenderPipeline),
		bindGroups: make(map[string]*wgpu.BindGroup),
	}

	var layouts []*wgpu.BindGroupLayout
	if desc, ok := refl.Layouts[0]; ok {
		desc.Label = name + " Bind Group Layout"
		if prog.bindLayout, err = b.device.CreateBindGroupLayout(&desc); err != nil {
			module.Release()
			return 0, fmt.Errorf("bind group layout: %w", err)
		}
		layouts = append(layouts, prog.bindLayout)
	}
	prog.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		prog.release()
		return 0, fmt.Errorf("pipeline layout: %w", err)
	}

	id := b.nextProgram
	b.nextProgram++
	b.programs[id] = prog
	return id, nil
}

func (p *wgpuProgram) release() {
	for _, bg := range p.bindGroups {
		bg.Release()
	}
	for _, rp := range p.pipelines {
		rp.Release()
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	if p.bindLayout != nil {
		p.bindLayout.Release()
	}
	p.module.Release()
}

func (b *wgpuRendererBackendImpl) UseProgram(p uniform.ProgramID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.programs[p]
}

func (b *wgpuRendererBackendImpl) DeleteProgram(p uniform.ProgramID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prog, ok := b.programs[p]
	if !ok {
		return
	}
	if b.current == prog {
		b.current = nil
	}
	prog.release()
	delete(b.programs, p)
}

func (b *wgpuRendererBackendImpl) UniformLocation(program uniform.ProgramID, name string) uniform.Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	prog, ok := b.programs[program]
	if !ok {
		return uniform.NoLocation
	}
	loc := prog.writer.Location(name)
	if loc < 0 {
		return uniform.NoLocation
	}
	return uniform.Location(loc)
}

func (b *wgpuRendererBackendImpl) Uniform1i(loc uniform.Location, v int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.writer.SetInt(int(loc), v)
	}
}

func (b *wgpuRendererBackendImpl) Uniform1f(loc uniform.Location, v float32) {
	b.setFloats(loc, []float32{v})
}

func (b *wgpuRendererBackendImpl) Uniform2fv(loc uniform.Location, v []float32) {
	b.setFloats(loc, v)
}

func (b *wgpuRendererBackendImpl) Uniform3fv(loc uniform.Location, v []float32) {
	b.setFloats(loc, v)
}

func (b *wgpuRendererBackendImpl) Uniform4fv(loc uniform.Location, v []float32) {
	b.setFloats(loc, v)
}

func (b *wgpuRendererBackendImpl) UniformMatrix3fv(loc uniform.Location, v []float32) {
	b.setFloats(loc, v)
}

func (b *wgpuRendererBackendImpl) UniformMatrix4fv(loc uniform.Location, v []float32) {
	b.setFloats(loc, v)
}

func (b *wgpuRendererBackendImpl) setFloats(loc uniform.Location, v []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.writer.SetFloats(int(loc), v)
	}
}

func (b *wgpuRendererBackendImpl) CreateMesh(t mesh.Template) (MeshHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := &wgpuMesh{template: t, buffers: make(map[string]*wgpu.Buffer)}
	for _, a := range t.Attributes() {
		data := common.SliceToBytes(a.Data)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: t.Name() + " " + a.Name,
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			m.release()
			return 0, err
		}
		b.queue.WriteBuffer(buf, 0, data)
		m.buffers[a.Name] = buf
	}

	if t.Indexed() {
		// Buffer writes must be a multiple of 4 bytes.
		indices := t.Indices()
		if len(indices)%2 == 1 {
			indices = append(indices[:len(indices):len(indices)], 0)
		}
		data := common.SliceToBytes(indices)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: t.Name() + " Index Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			m.release()
			return 0, err
		}
		b.queue.WriteBuffer(buf, 0, data)
		m.index = buf
	}

	h := b.nextMesh
	b.nextMesh++
	b.meshes[h] = m
	return h, nil
}

func (m *wgpuMesh) release() {
	for _, buf := range m.buffers {
		buf.Release()
	}
	if m.index != nil {
		m.index.Release()
	}
}

func (b *wgpuRendererBackendImpl) DeleteMesh(h MeshHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.meshes[h]; ok {
		m.release()
		delete(b.meshes, h)
	}
}

var wgpuTopologies = map[mesh.DrawMode]wgpu.PrimitiveTopology{
	mesh.DrawModeTriangles: wgpu.PrimitiveTopologyTriangleList,
	mesh.DrawModeLines:     wgpu.PrimitiveTopologyLineList,
	mesh.DrawModePoints:    wgpu.PrimitiveTopologyPointList,
}

// renderPipeline returns the pipeline drawing m with prog, creating it on first use. Each
// vertex input reads its own buffer slot in the order of prog's inputs. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) renderPipeline(prog *wgpuProgram, m *wgpuMesh) (*wgpu.RenderPipeline, error) {
	inputs := prog.reflection.Inputs
	layouts := make([]wgpu.VertexBufferLayout, 0, len(inputs))
	key := strings.Builder{}
	fmt.Fprintf(&key, "%d", m.template.DrawMode())

	for _, in := range inputs {
		attr, ok := m.template.Attribute(in.Name)
		if !ok {
			return nil, fmt.Errorf("mesh %q has no attribute %q required by program %q", m.template.Name(), in.Name, prog.name)
		}
		format, ok := shader.VertexFormat(attr.Components)
		if !ok {
			return nil, fmt.Errorf("attribute %q: %d components", in.Name, attr.Components)
		}
		fmt.Fprintf(&key, ":%d", attr.Components)
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(attr.Components * 4),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         format,
				Offset:         0,
				ShaderLocation: in.Location,
			}},
		})
	}

	if rp, ok := prog.pipelines[key.String()]; ok {
		return rp, nil
	}

	rp, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  prog.name + " Render Pipeline",
		Layout: prog.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     prog.module,
			EntryPoint: prog.reflection.VertexEntry,
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     prog.module,
			EntryPoint: prog.reflection.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpuTopologies[m.template.DrawMode()],
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline %q: %w", prog.name, err)
	}
	prog.pipelines[key.String()] = rp
	return rp, nil
}

// boundTextures returns the texture each of prog's sampled textures reads, by unit.
// Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) boundTextures(prog *wgpuProgram) []*wgpuTexture {
	out := make([]*wgpuTexture, len(prog.reflection.Textures))
	for i := range prog.reflection.Textures {
		out[i] = b.fallback
		if h, ok := b.units[prog.writer.Unit(i)]; ok {
			if t, ok := b.textures[h]; ok {
				out[i] = t
			}
		}
	}
	return out
}

// bindGroup returns the group 0 bind group for prog with the currently bound textures,
// creating it on first use. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) bindGroup(prog *wgpuProgram) (*wgpu.BindGroup, error) {
	bound := b.boundTextures(prog)
	key := fmt.Sprint(bound)
	if bg, ok := prog.bindGroups[key]; ok {
		return bg, nil
	}

	textureAt := func(binding uint32, sampler bool) *wgpuTexture {
		for i, t := range prog.reflection.Textures {
			if (!sampler && t.Binding == binding) || (sampler && t.HasSampler && t.SamplerBinding == binding) {
				return bound[i]
			}
		}
		return b.fallback
	}

	layout := prog.reflection.Layouts[0]
	entries := make([]wgpu.BindGroupEntry, 0, len(layout.Entries))
	for _, e := range layout.Entries {
		switch {
		case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: e.Binding,
				Buffer:  b.uniformBuffer,
				Offset:  0,
				Size:    prog.reflection.Block.Size,
			})
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     e.Binding,
				TextureView: textureAt(e.Binding, false).view,
			})
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: e.Binding,
				Sampler: textureAt(e.Binding, true).sampler,
			})
		}
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   prog.name + " Bind Group",
		Layout:  prog.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %q: %w", prog.name, err)
	}
	prog.bindGroups[key] = bg
	return bg, nil
}

// uniformSlot copies prog's staged block into the next free slot of the uniform buffer
// and returns its dynamic offset. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) uniformSlot(prog *wgpuProgram) (uint32, error) {
	size := prog.reflection.Block.Size
	offset := alignUp(b.uniformCursor, uniformSlotAlignment)
	if offset+size > b.uniformCapacity {
		if err := b.allocateUniformBuffer(2 * max(b.uniformCapacity, size)); err != nil {
			return 0, err
		}
		offset = 0
	}
	b.queue.WriteBuffer(b.uniformBuffer, offset, prog.writer.Bytes())
	b.uniformCursor = offset + size
	return uint32(offset), nil
}

// allocateUniformBuffer replaces the uniform buffer. Bind groups refer to the buffer, so
// every cached bind group is retired with it. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) allocateUniformBuffer(capacity uint64) error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Buffer",
		Size:  capacity,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}
	if b.uniformBuffer != nil {
		b.retiredBuffers = append(b.retiredBuffers, b.uniformBuffer)
	}
	b.retireBindGroups()
	b.uniformBuffer = buf
	b.uniformCapacity = capacity
	b.uniformCursor = 0
	return nil
}

func (b *wgpuRendererBackendImpl) retireBindGroups() {
	for _, prog := range b.programs {
		for key, bg := range prog.bindGroups {
			b.retiredBindGroups = append(b.retiredBindGroups, bg)
			delete(prog.bindGroups, key)
		}
	}
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) / alignment * alignment
}

func (b *wgpuRendererBackendImpl) DrawMesh(p uniform.ProgramID, h MeshHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw: no frame in progress")
	}
	prog, ok := b.programs[p]
	if !ok {
		return fmt.Errorf("draw: unknown program %d", p)
	}
	m, ok := b.meshes[h]
	if !ok {
		return fmt.Errorf("draw: unknown mesh %d", h)
	}

	rp, err := b.renderPipeline(prog, m)
	if err != nil {
		return err
	}
	b.framePass.SetPipeline(rp)

	if prog.bindLayout != nil {
		var offsets []uint32
		if prog.reflection.HasBlock {
			offset, err := b.uniformSlot(prog)
			if err != nil {
				return err
			}
			offsets = []uint32{offset}
		}
		bg, err := b.bindGroup(prog)
		if err != nil {
			return err
		}
		b.framePass.SetBindGroup(0, bg, offsets)
	}

	for slot, in := range prog.reflection.Inputs {
		b.framePass.SetVertexBuffer(uint32(slot), m.buffers[in.Name], 0, wgpu.WholeSize)
	}
	if m.template.Indexed() {
		b.framePass.SetIndexBuffer(m.index, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		b.framePass.DrawIndexed(uint32(m.template.ElementCount()), 1, 0, 0, 0)
	} else {
		b.framePass.Draw(uint32(m.template.VertexCount()), 1, 0, 0)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(px common.TextureStagingData) (texture.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.uploadTexture(fmt.Sprintf("Texture %d", b.nextTexture), px)
	if err != nil {
		return 0, err
	}
	h := b.nextTexture
	b.nextTexture++
	b.textures[h] = t
	return h, nil
}

// uploadTexture creates a texture, view and sampler from px. RGB data is expanded to RGBA,
// which is the narrowest 8-bit color format WebGPU samples. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) uploadTexture(label string, px common.TextureStagingData) (*wgpuTexture, error) {
	if !px.Valid() {
		return nil, fmt.Errorf("%s: invalid pixel data %dx%d", label, px.Width, px.Height)
	}
	pixels := px.Pixels
	if px.Format == common.PixelFormatRGB {
		pixels = expandRGB(pixels)
	}

	size := wgpu.Extent3D{
		Width:              px.Width,
		Height:             px.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  px.Width * 4,
			RowsPerImage: px.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	filter := wgpu.FilterModeNearest
	if px.Filter == common.TextureFilterLinear {
		filter = wgpu.FilterModeLinear
	}
	address := wgpu.AddressModeRepeat
	if px.Wrap == common.TextureWrapClampToEdge {
		address = wgpu.AddressModeClampToEdge
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view, sampler: samp}, nil
}

// expandRGB widens tightly packed RGB pixels to opaque RGBA.
func expandRGB(rgb []byte) []byte {
	out := make([]byte, 0, len(rgb)/3*4)
	for i := 0; i+2 < len(rgb); i += 3 {
		out = append(out, rgb[i], rgb[i+1], rgb[i+2], 255)
	}
	return out
}

func (b *wgpuRendererBackendImpl) DeleteTexture(h texture.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[h]
	if !ok {
		return
	}
	for unit, bound := range b.units {
		if bound == h {
			delete(b.units, unit)
		}
	}
	b.retireBindGroups()
	b.retiredTextures = append(b.retiredTextures, t)
	delete(b.textures, h)
	if b.framePass == nil {
		b.releaseRetired()
	}
}

func (b *wgpuRendererBackendImpl) BindTexture(h texture.Handle, unit int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units[unit] = h
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, acquiring another one fails
	// with "Surface image is already acquired".
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.uniformCursor = 0

	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("end frame: no frame in progress")
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	b.frameEncoder.Release()
	b.frameView.Release()
	b.frameSurface.Release()
	b.frameEncoder = nil
	b.framePass = nil
	b.frameSurface = nil
	b.frameView = nil
	b.releaseRetired()
	return err
}

// releaseRetired frees resources that were replaced while a frame was being encoded.
// Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) releaseRetired() {
	for _, bg := range b.retiredBindGroups {
		bg.Release()
	}
	for _, buf := range b.retiredBuffers {
		buf.Release()
	}
	for _, t := range b.retiredTextures {
		t.release()
	}
	b.retiredBindGroups = nil
	b.retiredBuffers = nil
	b.retiredTextures = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, prog := range b.programs {
		prog.release()
		delete(b.programs, id)
	}
	for h, m := range b.meshes {
		m.release()
		delete(b.meshes, h)
	}
	for h, t := range b.textures {
		t.release()
		delete(b.textures, h)
	}
	b.releaseRetired()
	if b.fallback != nil {
		b.fallback.release()
		b.fallback = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	b.releaseTargets()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}
