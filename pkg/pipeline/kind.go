package pipeline

import "strings"

// StageKind identifies one module of a PIPELINE file.
type StageKind string

const (
	KindGlobalParameters  StageKind = "GLOBAL_PARAMETERS"
	KindCheckFolder       StageKind = "CHECK_FOLDER"
	KindReorganize        StageKind = "REORGANIZE"
	KindDCM2NII           StageKind = "DCM2NII"
	KindSpatialResampling StageKind = "SPATIAL_RESAMPLING"
	KindIntensityResample StageKind = "INTENSITY_RESAMPLING"
	KindMergeMasks        StageKind = "MERGE_MASKS"
	KindMaskThresholding  StageKind = "MASK_THRESHOLDING"
	KindWindowing         StageKind = "I-WINDOWING"
	KindImageHarmonize    StageKind = "I-HARMONIZE"
	KindN4BiasCorrection  StageKind = "N4-BIAS-FIELD-CORRECTION"
	KindRadiomics         StageKind = "RADIOMICS"
	KindDelete            StageKind = "DELETE"
	KindSegmentation      StageKind = "SEGMENTATION"
	KindFeatureNormalize  StageKind = "F-NORMALIZE"
	KindFeatureHarmonize  StageKind = "F-HARMONIZE"
	KindPredict           StageKind = "PREDICT"
	KindCopy              StageKind = "COPY"
)

// kindOrder is the recognition order for stage header lines. Matching is a
// substring test against the comment-stripped line, first hit wins, so the
// order must stay stable to keep existing PIPELINE files parsing the same way.
var kindOrder = []StageKind{
	KindGlobalParameters,
	KindCheckFolder,
	KindReorganize,
	KindDCM2NII,
	KindSpatialResampling,
	KindIntensityResample,
	KindMergeMasks,
	KindMaskThresholding,
	KindWindowing,
	KindImageHarmonize,
	KindN4BiasCorrection,
	KindRadiomics,
	KindDelete,
	KindSegmentation,
	KindFeatureNormalize,
	KindFeatureHarmonize,
	KindPredict,
	KindCopy,
}

// matchKind recognizes the stage kind declared on a header line. The line must
// already have its trailing comment stripped.
func matchKind(line string) (StageKind, bool) {
	for _, k := range kindOrder {
		if strings.Contains(line, string(k)) {
			return k, true
		}
	}
	return "", false
}

func (k StageKind) String() string { return string(k) }
