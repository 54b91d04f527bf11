package fixed

import "errors"

// ErrTrigArgOutOfRange reports an inverse trig argument outside [-1, 1].
var ErrTrigArgOutOfRange = errors.New("fixed: inverse trig argument out of range")

// Angle constants. All trig entry points take fixed-point degrees; radians
// exist only as conversion helpers for callers that start from radians.
const (
	// Pi is the fixed-point value of π.
	Pi Scalar = 3_141_593
	// HalfCircle is 180 degrees.
	HalfCircle Scalar = 180 * Scale
	// FullCircle is 360 degrees.
	FullCircle Scalar = 360 * Scale
	// QuarterCircle is 90 degrees.
	QuarterCircle Scalar = 90 * Scale
)

// ln2 is the fixed-point value of ln(2), shared with the exponential code.
const ln2 Scalar = 693_147

// sinQuarterTable holds sin(k * 0.25°) for k in [0, 360], pre-scaled by
// Scale. The remaining quadrants fold onto this one by symmetry. The values
// are fixed constants so every platform reads the same table; nothing is
// recomputed at startup.
var sinQuarterTable = [361]int32{
	0, 4363, 8727, 13090, 17452, 21815, 26177, 30539,
	34899, 39260, 43619, 47978, 52336, 56693, 61049, 65403,
	69756, 74108, 78459, 82808, 87156, 91502, 95846, 100188,
	104528, 108867, 113203, 117537, 121869, 126199, 130526, 134851,
	139173, 143493, 147809, 152123, 156434, 160743, 165048, 169350,
	173648, 177944, 182236, 186524, 190809, 195090, 199368, 203642,
	207912, 212178, 216440, 220697, 224951, 229200, 233445, 237686,
	241922, 246153, 250380, 254602, 258819, 263031, 267238, 271440,
	275637, 279829, 284015, 288196, 292372, 296542, 300706, 304864,
	309017, 313164, 317305, 321439, 325568, 329691, 333807, 337917,
	342020, 346117, 350207, 354291, 358368, 362438, 366501, 370557,
	374607, 378649, 382683, 386711, 390731, 394744, 398749, 402747,
	406737, 410719, 414693, 418660, 422618, 426569, 430511, 434445,
	438371, 442289, 446198, 450098, 453990, 457874, 461749, 465615,
	469472, 473320, 477159, 480989, 484810, 488621, 492424, 496217,
	500000, 503774, 507538, 511293, 515038, 518773, 522499, 526214,
	529919, 533615, 537300, 540974, 544639, 548293, 551937, 555570,
	559193, 562805, 566406, 569997, 573576, 577145, 580703, 584250,
	587785, 591310, 594823, 598325, 601815, 605294, 608761, 612217,
	615661, 619094, 622515, 625923, 629320, 632705, 636078, 639439,
	642788, 646124, 649448, 652760, 656059, 659346, 662620, 665882,
	669131, 672367, 675590, 678801, 681998, 685183, 688355, 691513,
	694658, 697790, 700909, 704015, 707107, 710185, 713250, 716302,
	719340, 722364, 725374, 728371, 731354, 734323, 737277, 740218,
	743145, 746057, 748956, 751840, 754710, 757565, 760406, 763232,
	766044, 768842, 771625, 774393, 777146, 779884, 782608, 785317,
	788011, 790690, 793353, 796002, 798636, 801254, 803857, 806445,
	809017, 811574, 814116, 816642, 819152, 821647, 824126, 826590,
	829038, 831470, 833886, 836286, 838671, 841039, 843391, 845728,
	848048, 850352, 852640, 854912, 857167, 859406, 861629, 863836,
	866025, 868199, 870356, 872496, 874620, 876727, 878817, 880891,
	882948, 884988, 887011, 889017, 891007, 892979, 894934, 896873,
	898794, 900698, 902585, 904455, 906308, 908143, 909961, 911762,
	913545, 915311, 917060, 918791, 920505, 922201, 923880, 925541,
	927184, 928810, 930418, 932008, 933580, 935135, 936672, 938191,
	939693, 941176, 942641, 944089, 945519, 946930, 948324, 949699,
	951057, 952396, 953717, 955020, 956305, 957571, 958820, 960050,
	961262, 962455, 963630, 964787, 965926, 967046, 968148, 969231,
	970296, 971342, 972370, 973379, 974370, 975342, 976296, 977231,
	978148, 979045, 979925, 980785, 981627, 982450, 983255, 984041,
	984808, 985556, 986286, 986996, 987688, 988362, 989016, 989651,
	990268, 990866, 991445, 992005, 992546, 993068, 993572, 994056,
	994522, 994969, 995396, 995805, 996195, 996566, 996917, 997250,
	997564, 997859, 998135, 998392, 998630, 998848, 999048, 999229,
	999391, 999534, 999657, 999762, 999848, 999914, 999962, 999990,
	1000000,
}

// NormalizeDeg wraps an angle into [0°, 360°).
func NormalizeDeg(d Scalar) Scalar {
	d %= FullCircle
	if d < 0 {
		d += FullCircle
	}
	return d
}

// SinDeg returns the sine of an angle in fixed-point degrees, via table
// lookup with linear interpolation between quarter-degree entries.
func SinDeg(d Scalar) Scalar {
	d = NormalizeDeg(d)
	negative := false
	if d >= HalfCircle {
		negative = true
		d -= HalfCircle
	}
	if d > QuarterCircle {
		d = HalfCircle - d
	}
	// Quarter-degree index plus fractional remainder for interpolation.
	quarters := int64(d) * 4
	idx := quarters / Scale
	frac := Scalar(quarters % Scale)
	value := Scalar(sinQuarterTable[idx])
	if idx < 360 && frac != 0 {
		next := Scalar(sinQuarterTable[idx+1])
		value += (next - value).Mul(frac)
	}
	if negative {
		return -value
	}
	return value
}

// CosDeg returns the cosine of an angle in fixed-point degrees.
func CosDeg(d Scalar) Scalar {
	return SinDeg(d + QuarterCircle)
}

// TanDeg returns the tangent of an angle in fixed-point degrees. Angles
// whose cosine is exactly zero fail with ErrDivisionByZero.
func TanDeg(d Scalar) (Scalar, error) {
	return SinDeg(d).Div(CosDeg(d))
}

// AtanDeg returns the arctangent in fixed-point degrees.
//
// The computation reduces the argument below tan(22.5°) with the standard
// identities, then evaluates the truncated power series
// x - x³/3 + x⁵/5 - … in radians before converting to degrees.
func AtanDeg(x Scalar) Scalar {
	negative := x < 0
	if negative {
		x = -x
	}
	var result Scalar
	switch {
	case x > One:
		result = Pi/2 - atanSeries(One.div(x))
	case x > 414_214: // tan(22.5°); fold onto [0, tan(22.5°)] around π/4
		result = Pi/4 + atanSeries((x - One).div(x + One))
	default:
		result = atanSeries(x)
	}
	deg := RadToDeg(result)
	if negative {
		return -deg
	}
	return deg
}

// atanSeries evaluates atan for |x| <= tan(22.5°) in radians.
func atanSeries(x Scalar) Scalar {
	x2 := x.Mul(x)
	term := x
	sum := x
	for _, divisor := range [...]Scalar{FromInt(3), FromInt(5), FromInt(7), FromInt(9), FromInt(11), FromInt(13)} {
		term = term.Mul(x2).Neg()
		sum += term.div(divisor)
		if term == 0 {
			break
		}
	}
	return sum
}

// Atan2Deg returns the angle of the point (x, y) in fixed-point degrees in
// (-180°, 180°], matching the usual atan2 quadrant conventions.
func Atan2Deg(y, x Scalar) Scalar {
	if x == 0 {
		switch {
		case y > 0:
			return QuarterCircle
		case y < 0:
			return -QuarterCircle
		default:
			return 0
		}
	}
	angle := AtanDeg(y.div(x))
	if x < 0 {
		if y >= 0 {
			return angle + HalfCircle
		}
		return angle - HalfCircle
	}
	return angle
}

// AsinDeg returns the arcsine in fixed-point degrees. Arguments outside
// [-1, 1] fail with ErrTrigArgOutOfRange.
func AsinDeg(x Scalar) (Scalar, error) {
	if x < -One || x > One {
		return 0, ErrTrigArgOutOfRange
	}
	cos := sqrtNonNegative(One - x.Mul(x))
	return Atan2Deg(x, cos), nil
}

// AcosDeg returns the arccosine in fixed-point degrees.
func AcosDeg(x Scalar) (Scalar, error) {
	asin, err := AsinDeg(x)
	if err != nil {
		return 0, err
	}
	return QuarterCircle - asin, nil
}

// DegToRad converts fixed-point degrees to fixed-point radians.
func DegToRad(d Scalar) Scalar {
	return d.Mul(Pi).div(HalfCircle)
}

// RadToDeg converts fixed-point radians to fixed-point degrees.
func RadToDeg(r Scalar) Scalar {
	return r.Mul(HalfCircle).div(Pi)
}
