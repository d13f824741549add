package ay8910

// Measured DAC output curves, indexed by amplitude level 0-31. The
// AY-3-8910 DAC has 16 distinct steps (each envelope level pair maps to
// one step); the YM2149 resolves all 32.

var ayDACTable = [32]float64{
	0.0, 0.0,
	0.00999465934234, 0.00999465934234,
	0.0144502937362, 0.0144502937362,
	0.0210574502174, 0.0210574502174,
	0.0307011520562, 0.0307011520562,
	0.0455481803616, 0.0455481803616,
	0.0644998855573, 0.0644998855573,
	0.107362478065, 0.107362478065,
	0.126588845655, 0.126588845655,
	0.20498970016, 0.20498970016,
	0.292210269322, 0.292210269322,
	0.372838941024, 0.372838941024,
	0.492530708782, 0.492530708782,
	0.635324635691, 0.635324635691,
	0.805584802014, 0.805584802014,
	1.0, 1.0,
}

var ymDACTable = [32]float64{
	0.0, 0.0,
	0.00465400167849, 0.00772106507973,
	0.0109559777218, 0.0139620050355,
	0.0169985503929, 0.0200198367285,
	0.024368657969, 0.029694056611,
	0.0350652323186, 0.0403906309606,
	0.0485389486534, 0.0583352407111,
	0.0680552376593, 0.0777752346075,
	0.0925154497597, 0.111085679408,
	0.129747463188, 0.148485542077,
	0.17666895552, 0.211551079576,
	0.246387426566, 0.281101701381,
	0.333730067903, 0.400427252613,
	0.467383840696, 0.53443198291,
	0.635172045472, 0.75800717174,
	0.879926756695, 1.0,
}
