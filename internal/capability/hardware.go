package capability

import (
	"strings"

	"github.com/tvoe/mediaserver/internal/domain"
)

// Hardware generation tables. Identifiers come from the host configuration:
// Intel devices report a PCI id, Nvidia devices a product name. Matching is
// prefix-based for PCI ids and substring-based for product names; an
// unmatched identifier yields no hardware support rather than an error.

type intelGeneration struct {
	prefixes []string
	codecs   []domain.Codec
}

var intelGenerations = []intelGeneration{
	// Gen9 (Skylake): AVC decode/encode.
	{
		prefixes: []string{"1902", "1906", "190b", "1912", "1916", "191b", "191d", "191e", "1921", "1923", "1926", "1927", "192b", "192d"},
		codecs:   []domain.Codec{domain.CodecAVCBaseline, domain.CodecAVCMain, domain.CodecAVCHigh},
	},
	// Gen9.5 (Kaby Lake and later): adds HEVC Main and Main10.
	{
		prefixes: []string{"5902", "5906", "5912", "5916", "591", "3e9", "3ea", "9b", "9bc"},
		codecs: []domain.Codec{
			domain.CodecAVCBaseline, domain.CodecAVCMain, domain.CodecAVCHigh,
			domain.CodecHEVCMain, domain.CodecHEVCMain10,
		},
	},
	// Gen11/Gen12 (Ice Lake, Tiger Lake): adds HDR10 pipeline support.
	{
		prefixes: []string{"8a5", "9a4", "9a6", "9a7", "4c8", "4c9", "46", "a7"},
		codecs: []domain.Codec{
			domain.CodecAVCBaseline, domain.CodecAVCMain, domain.CodecAVCHigh,
			domain.CodecHEVCMain, domain.CodecHEVCMain10, domain.CodecHEVCHDR10,
		},
	},
}

type nvidiaGeneration struct {
	substrings []string
	codecs     []domain.Codec
}

var nvidiaGenerations = []nvidiaGeneration{
	// Maxwell: AVC only.
	{
		substrings: []string{"GTX 745", "GTX 750", "GTX 9", "GTX TITAN X"},
		codecs:     []domain.Codec{domain.CodecAVCBaseline, domain.CodecAVCMain, domain.CodecAVCHigh},
	},
	// Pascal and later: full HEVC support.
	{
		substrings: []string{"GTX 10", "GTX 16", "RTX", "TITAN V", "TITAN RTX", "QUADRO P", "QUADRO RTX", "TESLA P", "TESLA T", "TESLA V"},
		codecs: []domain.Codec{
			domain.CodecAVCBaseline, domain.CodecAVCMain, domain.CodecAVCHigh,
			domain.CodecHEVCMain, domain.CodecHEVCMain10, domain.CodecHEVCHDR10,
		},
	},
}

// ResolveHardware maps an accelerator vendor plus device identifier to the
// codec set the device can transcode. Unknown hardware returns an empty set.
func ResolveHardware(vendor, device string) domain.CodecSet {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "intel", "8086", "0x8086":
		return resolveIntel(device)
	case "nvidia", "10de", "0x10de":
		return resolveNvidia(device)
	default:
		return domain.NewCodecSet()
	}
}

func resolveIntel(device string) domain.CodecSet {
	id := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(device), "0x"))
	best := domain.NewCodecSet()
	for _, gen := range intelGenerations {
		for _, prefix := range gen.prefixes {
			if strings.HasPrefix(id, prefix) && len(gen.codecs) > len(best) {
				best = domain.NewCodecSet(gen.codecs...)
			}
		}
	}
	return best
}

func resolveNvidia(device string) domain.CodecSet {
	name := strings.ToUpper(strings.TrimSpace(device))
	for _, gen := range nvidiaGenerations {
		for _, sub := range gen.substrings {
			if strings.Contains(name, sub) {
				return domain.NewCodecSet(gen.codecs...)
			}
		}
	}
	return domain.NewCodecSet()
}
