package pool

// Entries of the soybean cyst nematode (SCN) variety trial.
var (
	AG = []string{"AG29XF4", "AG29XF5", "AG34XF6", "AG35XF5", "AG36XF4", "AG38XF6", "AG40XFF5"}

	LD = []string{
		"LD11-2170", "LD20-4471", "LD20-4542", "LD20-4988", "LD20-5738", "LD22-4283",
		"LD00-2817P", "LD17-10473L", "LD19-10076", "LD19-10244", "LD21-5944", "LD21-5991",
		"LD07-3395bf", "LD17-10473F", "LD20-11748", "LD20-5413", "LD21-3090", "LD21-5253",
		"LD21-5665", "LD21-7234",
	}

	LG = []string{"LG3216"}
)

// DefaultPools returns the AG, LD and LG pools with their map colors.
func DefaultPools() []Pool {
	return []Pool{
		{Name: "AG", Entries: append([]string(nil), AG...), Color: "#fdd0a2"},
		{Name: "LD", Entries: append([]string(nil), LD...), Color: "#c7e9c0"},
		{Name: "LG", Entries: append([]string(nil), LG...), Color: "#c6dbef"},
	}
}

// DefaultTypes returns the three pairings used by the trial.
func DefaultTypes() []SubblockType {
	return []SubblockType{
		{Name: "AG-vs-LD", A: "AG", B: "LD", Color: "#fdae6b"},
		{Name: "AG-vs-LG", A: "AG", B: "LG", Color: "#9ecae1"},
		{Name: "LD-vs-LG", A: "LD", B: "LG", Color: "#a1d99b"},
	}
}

// Default returns a registry over [DefaultPools] and [DefaultTypes].
func Default() *Registry {
	r, err := NewRegistry(DefaultPools(), DefaultTypes())
	if err != nil {
		panic("pool: invalid default catalog: " + err.Error())
	}
	return r
}
