package ay8910

// firHalf holds the first half of the symmetric 192-tap low-pass used
// by the 8:1 decimator. firHalf[i] weights x[i]+x[192-i]; entries at
// multiples of the decimation factor are zero by design of the filter.
// firCenter weights the middle tap x[96].
const firCenter = 0.125

var firHalf = [96]float64{
	0,
	-0.0000046183113992051936,
	-0.00001117761640887225,
	-0.000018610264502005432,
	-0.000025134586135631012,
	-0.000028494281690666197,
	-0.000026396828793275159,
	-0.000017094212558802156,
	0,
	0.000023798193576966866,
	0.000051281160242202183,
	0.00007762197826243427,
	0.000096759426664120416,
	0.00010240229300393402,
	0.000089344614218077106,
	0.000054875700118949183,
	0,
	-0.000069839082210680165,
	-0.0001447966132360757,
	-0.00021158452917708308,
	-0.00025535069106550544,
	-0.00026228714374322104,
	-0.00022258805927027799,
	-0.00013323230495695704,
	0,
	0.00016182578767055206,
	0.00032846175385096581,
	0.00047045611576184863,
	0.00055713851457530944,
	0.00056212565121518726,
	0.00046901918553962478,
	0.00027624866838952986,
	0,
	-0.00032564179486838622,
	-0.00065182310286710388,
	-0.00092127787309319298,
	-0.0010772534348943575,
	-0.0010737727700273478,
	-0.00088556645390392634,
	-0.00051581896090765534,
	0,
	0.00059548767193795277,
	0.0011803558710661009,
	0.0016527320270369871,
	0.0019152679330965555,
	0.0018927324805381538,
	0.0015481870327877937,
	0.00089470695834941306,
	0,
	-0.0010178225878206125,
	-0.0020037400552054292,
	-0.0027874356824117317,
	-0.003210329988021943,
	-0.0031540624117984395,
	-0.0025657163651900345,
	-0.0014750752642111449,
	0,
	0.0016624165446378462,
	0.0032591192839069179,
	0.0045165685815867747,
	0.0051838984346123896,
	0.0050774264697459933,
	0.0041192521414141585,
	0.0023628575417966491,
	0,
	-0.0026543507866759182,
	-0.0051990251084333425,
	-0.0072020238234656924,
	-0.0082672928192007358,
	-0.0081033739572956287,
	-0.006583111539570221,
	-0.0037839040415292386,
	0,
	0.0042781252851152507,
	0.0084176358598320178,
	0.01172566057463055,
	0.013550476647788672,
	0.013388189369997496,
	0.010979501242341259,
	0.006381274941685413,
	0,
	-0.007421229604153888,
	-0.01486456304340213,
	-0.021143584622178104,
	-0.02504275058758609,
	-0.025473530942547201,
	-0.021627310017882196,
	-0.013104323383225543,
	0,
	0.017065133989980476,
	0.036978919264451952,
	0.05823318062093958,
	0.079072012081405949,
	0.097675998716952317,
	0.11236045936950932,
	0.12176343577287731,
}

// decimate folds the symmetric window, emits one output sample for the
// current 8 input sub-samples, and slides the newest sub-samples to the
// tail of the window.
func decimate(x []float64) float64 {
	y := firCenter * x[96]
	for i := 1; i < 96; i++ {
		if firHalf[i] == 0 {
			continue
		}
		y += firHalf[i] * (x[i] + x[192-i])
	}
	copy(x[firSize-decimateFactor:firSize], x[:decimateFactor])
	return y
}
