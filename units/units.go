/*package units holds the physical constants shared by every part of the
simulation. All quantities in the code are SI unless a comment says
otherwise. Values are CODATA 2018.
*/
package units

const (
	// C is the speed of light in vacuum. [m/s]
	C = 299792458.0
	// C2 is C*C, precomputed because it shows up in every field update.
	C2 = C * C
	// Eps0 is the vacuum permittivity. [F/m]
	Eps0 = 8.8541878128e-12
	// Mu0 is the vacuum permeability. [H/m]
	Mu0 = 1.25663706212e-6
	// QE is the elementary charge. [C]
	QE = 1.602176634e-19
	// ME is the electron mass. [kg]
	ME = 9.1093837015e-31
	// MP is the proton mass. [kg]
	MP = 1.67262192369e-27
	// KB is the Boltzmann constant. [J/K]
	KB = 1.380649e-23
)
